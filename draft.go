package main

// ApplyFieldValue merges one incoming field value into the draft and
// returns the updated copy. Policy, in order:
//
//  1. Locked fields never change — manual edits are sacrosanct.
//  2. Otherwise the value applies only if its confidence is at least the
//     stored confidence; ties go to the newest value.
//  3. Conversational answers and manual edits are forced to high
//     confidence and lock the field against later automated merges.
//
// Pure function of its inputs; rejected values return the draft unchanged.
func ApplyFieldValue(d Draft, field Field, value string, conf Confidence, origin ValueOrigin) Draft {
	if origin == OriginAnswer || origin == OriginManual {
		conf = ConfidenceHigh
	}
	if d.LockedFields[field] {
		return d
	}
	if stored, ok := d.FieldConfidence[field]; ok && !conf.AtLeast(stored) {
		return d
	}

	out := cloneDraft(d)
	out.setFieldValue(field, value)
	out.FieldConfidence[field] = conf
	if origin == OriginAnswer || origin == OriginManual {
		out.LockedFields[field] = true
	}
	return out
}

// OverrideField applies a deliberate user edit, replacing the value even
// when a previous answer or edit locked the field. The lock protects the
// value from automated merges, not from the user; the field comes out
// locked again with the new value sacrosanct.
func OverrideField(d Draft, field Field, value string) Draft {
	out := cloneDraft(d)
	delete(out.LockedFields, field)
	return ApplyFieldValue(out, field, value, ConfidenceHigh, OriginManual)
}

// SkipField records an explicit skip of an askable field.
func SkipField(d Draft, field Field) Draft {
	out := cloneDraft(d)
	out.SkippedFields[field] = true
	return out
}

// ReopenField clears a single field from the skip set so the Selector can
// offer it again. The ask-count ceiling still binds.
func ReopenField(d Draft, field Field) Draft {
	out := cloneDraft(d)
	delete(out.SkippedFields, field)
	return out
}

func cloneDraft(d Draft) Draft {
	out := d
	out.FieldConfidence = make(map[Field]Confidence, len(d.FieldConfidence))
	for k, v := range d.FieldConfidence {
		out.FieldConfidence[k] = v
	}
	out.LockedFields = make(map[Field]bool, len(d.LockedFields))
	for k, v := range d.LockedFields {
		out.LockedFields[k] = v
	}
	out.SkippedFields = make(map[Field]bool, len(d.SkippedFields))
	for k, v := range d.SkippedFields {
		out.SkippedFields[k] = v
	}
	out.AskCounts = make(map[Field]int, len(d.AskCounts))
	for k, v := range d.AskCounts {
		out.AskCounts[k] = v
	}
	return out
}
