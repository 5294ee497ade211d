package commands

import (
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/rs/zerolog/log"
	"golang.org/x/term"

	"github.com/colonyops/promptstack/internal/core/styles"
)

// renderMarkdown renders md with the active theme when tty is true and
// returns it unchanged otherwise or when rendering fails.
func renderMarkdown(md string, tty bool) string {
	if !tty {
		return strings.TrimSpace(md)
	}

	r, err := glamour.NewTermRenderer(
		glamour.WithStyles(styles.GlamourStyle()),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		log.Debug().Err(err).Msg("markdown renderer unavailable")
		return strings.TrimSpace(md)
	}

	out, err := r.Render(md)
	if err != nil {
		log.Debug().Err(err).Msg("markdown render failed")
		return strings.TrimSpace(md)
	}
	return strings.TrimRight(out, "\n")
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
