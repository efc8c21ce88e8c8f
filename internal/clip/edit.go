package clip

// MergeClipEdit folds a partial edit into an existing per-clip edit. The
// merge is field-level: a non-zero field from the patch wins, an absent
// field preserves the previous value. A shallow overwrite would clobber
// fields the newest intent never mentioned.
func MergeClipEdit(existing *ClipEdit, patch ClipEdit) ClipEdit {
	var out ClipEdit
	if existing != nil {
		out = *existing
	}
	out.ClipID = patch.ClipID

	if patch.FilterStyle != "" {
		out.FilterStyle = patch.FilterStyle
	}
	if patch.Subtitles != "" {
		out.Subtitles = patch.Subtitles
	}
	if patch.Overlay != nil {
		ov := *patch.Overlay
		out.Overlay = &ov
	}
	out.Revision++
	return out
}
