package commands

import (
	"fmt"
	"strconv"
	"time"

	"github.com/leapstack-labs/mzfresh/internal/cli/output"
)

// keyValue writes one labelled value in the renderer's mode.
func keyValue(r *output.Renderer, key, value string) {
	if r.EffectiveMode() == output.ModeText {
		r.Printf("%s %s\n", r.Styles().Bold.Render(key+":"), value)
		return
	}
	r.Println(output.FormatKeyValue(key, value))
}

// objectLabel renders "name (id)", or just the id when the name is unknown.
func objectLabel(id string, name *string) string {
	if name == nil || *name == "" {
		return id
	}
	return fmt.Sprintf("%s (%s)", *name, id)
}

func typeLabel(t *string) string {
	if t == nil {
		return "-"
	}
	return output.FormatLabel(*t)
}

func staleLabel(r *output.Renderer, stale bool) string {
	if r.EffectiveMode() == output.ModeText {
		return r.Styles().Staleness(stale)
	}
	if stale {
		return "stale"
	}
	return "fresh"
}

func frontierLabel(f *uint64, t *time.Time) string {
	if f == nil {
		return "-"
	}
	if t == nil {
		return strconv.FormatUint(*f, 10)
	}
	return fmt.Sprintf("%d (%s)", *f, t.UTC().Format(time.RFC3339Nano))
}
