package reconcile

// TruthIndex maps a join key to the truth record that wins for it.
type TruthIndex struct {
	byKey map[string]Record

	// Duplicates counts truth rows whose join key was already indexed.
	Duplicates int
}

// BuildTruthIndex indexes truth records in file order. A later record with
// the same join key replaces an earlier one, so the last duplicate wins.
func BuildTruthIndex(truths []Record) *TruthIndex {
	idx := &TruthIndex{byKey: make(map[string]Record, len(truths))}
	for _, t := range truths {
		if _, exists := idx.byKey[t.JoinKey]; exists {
			idx.Duplicates++
		}
		idx.byKey[t.JoinKey] = t
	}
	return idx
}

// Lookup returns the winning truth record for a join key.
func (idx *TruthIndex) Lookup(joinKey string) (Record, bool) {
	r, ok := idx.byKey[joinKey]
	return r, ok
}

// Len returns the number of distinct truth join keys.
func (idx *TruthIndex) Len() int {
	return len(idx.byKey)
}

// MatchResult holds the two deduplicated lookup tables of one group.
type MatchResult struct {
	// Customers maps guessed customer name to fuse id.
	Customers *Mapping

	// Distributors maps fuzzy distributor name to true distributor name.
	Distributors *Mapping

	// Matched is the number of guess rows that found a truth row.
	Matched int

	// Unmatched holds the guess rows that found none, in file order.
	Unmatched []Record

	// DuplicateTruthKeys is copied from the truth index.
	DuplicateTruthKeys int
}

// Match joins guess records against truth records on equal join keys.
//
// The result is the same as comparing every guess row with every truth row,
// truth rows inner, and assigning on each equal key: for each guess row the
// last matching truth row decides the value, later guess rows overwrite
// earlier ones for the same name, and a name keeps the position of the first
// guess row that produced it. The truth side is indexed once instead.
func Match(guesses, truths []Record) *MatchResult {
	idx := BuildTruthIndex(truths)

	result := &MatchResult{
		Customers:          NewMapping(),
		Distributors:       NewMapping(),
		DuplicateTruthKeys: idx.Duplicates,
	}

	for _, g := range guesses {
		t, ok := idx.Lookup(g.JoinKey)
		if !ok {
			result.Unmatched = append(result.Unmatched, g)
			continue
		}
		result.Matched++
		result.Customers.Set(g.Primary, t.Primary)
		result.Distributors.Set(g.Secondary, t.Secondary)
	}

	return result
}
