package types

// ReasoningDetail is one structured unit of reasoning reported by a backend.
type ReasoningDetail struct {
	ID     string `json:"id,omitempty"`
	Type   string `json:"type,omitempty"`
	Text   string `json:"text,omitempty"`
	Format string `json:"format,omitempty"`
	Index  *int   `json:"index,omitempty"`
	Data   string `json:"data,omitempty"`
}

// Continues reports whether d and other belong to the same reasoning stream:
// they share an identifier, or, when neither has one, the same
// index, type and format.
func (d ReasoningDetail) Continues(other ReasoningDetail) bool {
	if d.ID != "" || other.ID != "" {
		return d.ID == other.ID
	}
	if d.Index == nil || other.Index == nil || *d.Index != *other.Index {
		return false
	}
	return d.Type == other.Type && d.Format == other.Format
}

// Merge appends other's text to d. Non-text fields take other's value when
// it is non-empty.
func (d ReasoningDetail) Merge(other ReasoningDetail) ReasoningDetail {
	out := d.clone()
	out.Text += other.Text
	if other.ID != "" {
		out.ID = other.ID
	}
	if other.Type != "" {
		out.Type = other.Type
	}
	if other.Format != "" {
		out.Format = other.Format
	}
	if other.Data != "" {
		out.Data = other.Data
	}
	if other.Index != nil {
		out.Index = IntPtr(*other.Index)
	}
	return out
}

func (d ReasoningDetail) clone() ReasoningDetail {
	if d.Index != nil {
		d.Index = IntPtr(*d.Index)
	}
	return d
}

// MergeReasoningDetails folds incoming into list. A continuation of an
// existing entry is merged into it; anything else is appended.
func MergeReasoningDetails(list []ReasoningDetail, incoming ...ReasoningDetail) []ReasoningDetail {
	out := make([]ReasoningDetail, len(list), len(list)+len(incoming))
	copy(out, list)
	for _, in := range incoming {
		merged := false
		for i := len(out) - 1; i >= 0; i-- {
			if out[i].Continues(in) {
				out[i] = out[i].Merge(in)
				merged = true
				break
			}
		}
		if !merged {
			out = append(out, in.clone())
		}
	}
	return out
}
