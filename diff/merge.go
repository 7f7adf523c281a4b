package diff

// Literal conflict marker text (spec.md §4.7).
const (
	ConflictStart = "<<<<<<< HEAD"
	ConflictSep   = "======="
	ConflictEnd   = ">>>>>>> Merge Branch"
)

// ThreeWayMerge merges ours (head) and theirs against base, walking
// diff(base, head) and diff(base, theirs) in lockstep per the action
// table in spec.md §4.7. Returns the merged lines and whether any
// conflict block was emitted.
func ThreeWayMerge(base, head, theirs []string) (merged []string, conflict bool) {
	dH := Diff(base, head)
	dB := Diff(base, theirs)
	i, j := 0, 0

	for i < len(dH) || j < len(dB) {
		var sH, sB *Step
		if i < len(dH) {
			sH = &dH[i]
		}
		if j < len(dB) {
			sB = &dB[j]
		}

		switch {
		case sH != nil && sB != nil && sH.Kind == Same && sB.Kind == Same:
			merged = append(merged, sH.Line)
			i++
			j++
		case sH != nil && sB != nil && sH.Kind == Same && sB.Kind == Add:
			merged = append(merged, sB.Line)
			j++
		case sH != nil && sB != nil && sH.Kind == Add && sB.Kind == Same:
			merged = append(merged, sH.Line)
			i++
		case sH != nil && sB != nil && sH.Kind == Remove && sB.Kind == Same:
			i++
			j++
		case sH != nil && sB != nil && sH.Kind == Same && sB.Kind == Remove:
			i++
			j++
		case sH != nil && sB != nil && sH.Kind == Remove && sB.Kind == Remove:
			i++
			j++
		case sH != nil && sB != nil && sH.Kind == Add && sB.Kind == Add && sH.Line == sB.Line:
			merged = append(merged, sH.Line)
			i++
			j++
		case sH == nil && sB != nil && sB.Kind == Add:
			merged = append(merged, sB.Line)
			j++
		case sB == nil && sH != nil && sH.Kind == Add:
			merged = append(merged, sH.Line)
			i++
		default:
			var hLines, bLines []string
			for i < len(dH) && dH[i].Kind != Same {
				if dH[i].Kind == Add {
					hLines = append(hLines, dH[i].Line)
				}
				i++
			}
			for j < len(dB) && dB[j].Kind != Same {
				if dB[j].Kind == Add {
					bLines = append(bLines, dB[j].Line)
				}
				j++
			}
			merged = append(merged, ConflictStart)
			merged = append(merged, hLines...)
			merged = append(merged, ConflictSep)
			merged = append(merged, bLines...)
			merged = append(merged, ConflictEnd)
			conflict = true
		}
	}
	return merged, conflict
}
