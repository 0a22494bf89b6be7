package core

// typePair keys the compatibility table on (subject type, object type).
type typePair struct {
	subject EntityType
	object  EntityType
}

// compatTable enumerates the allowed (subject, predicate, object) type
// combinations. PART_OF and ASSOCIATED_WITH are handled separately because
// they range over open type sets.
var compatTable = map[Predicate]map[typePair]bool{}

func init() {
	regulationObjects := []EntityType{EntityGene, EntityProtein, EntityPhenotype, EntityDisease}
	for _, pred := range []Predicate{PredicateUpregulates, PredicateDownregulates, PredicateCauses} {
		compatTable[pred] = map[typePair]bool{}
		for _, obj := range regulationObjects {
			compatTable[pred][typePair{EntityStressor, obj}] = true
		}
	}
	for _, pred := range []Predicate{PredicateUpregulates, PredicateDownregulates, PredicateInteractsWith} {
		if compatTable[pred] == nil {
			compatTable[pred] = map[typePair]bool{}
		}
		for _, subj := range []EntityType{EntityGene, EntityProtein} {
			for _, obj := range []EntityType{EntityGene, EntityProtein} {
				compatTable[pred][typePair{subj, obj}] = true
			}
		}
	}
	for _, pred := range []Predicate{PredicateTreats, PredicatePrevents} {
		compatTable[pred] = map[typePair]bool{}
		for _, obj := range []EntityType{EntityDisease, EntityPhenotype} {
			compatTable[pred][typePair{EntityIntervention, obj}] = true
		}
	}
}

// containingTypes are the entity types that can be PART_OF targets.
var containingTypes = map[EntityType]bool{
	EntityCellType: true,
	EntityOrganism: true,
}

// Compatible reports whether the (subject type, predicate, object type)
// combination is allowed.
func Compatible(subject EntityType, predicate Predicate, object EntityType) bool {
	switch predicate {
	case PredicateAssociatedWith:
		// Co-occurrence fallback only; any pair of valid types.
		return subject.Valid() && object.Valid()
	case PredicatePartOf:
		return subject.Valid() && containingTypes[object]
	default:
		table, ok := compatTable[predicate]
		if !ok {
			return false
		}
		return table[typePair{subject, object}]
	}
}

// CompatiblePredicates returns the predicates allowed between the two types,
// excluding the co-occurrence-only ASSOCIATED_WITH, in stable order.
func CompatiblePredicates(subject, object EntityType) []Predicate {
	var out []Predicate
	for _, pred := range Predicates {
		if pred == PredicateAssociatedWith {
			continue
		}
		if Compatible(subject, pred, object) {
			out = append(out, pred)
		}
	}
	return out
}
