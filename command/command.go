// Package command defines the runnable-unit contract shared by the
// build manifest, the resolver, and the pipeline runner.
package command

// Spec holds the executable path and base arguments for a runnable
// component. It is the wire format stored in the build manifest.
type Spec struct {
	Command string   `json:"command"`
	Args    []string `json:"args,omitempty"`
}

// Clone returns a copy whose Args slice shares no storage with s, so
// resolved configs never alias manifest-owned slices.
func (s Spec) Clone() Spec {
	out := Spec{Command: s.Command}
	if len(s.Args) > 0 {
		out.Args = append([]string(nil), s.Args...)
	}

	return out
}
