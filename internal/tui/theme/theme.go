package theme

import (
	"maps"
	"os"
	"runtime"

	"github.com/Digital-Shane/moviedb/internal/provider"
	"github.com/charmbracelet/lipgloss"
)

// Palette is the set of colors every view draws from.
type Palette struct {
	Primary   lipgloss.Color
	Secondary lipgloss.Color
	Accent    lipgloss.Color
	Light     lipgloss.Color
	Muted     lipgloss.Color
	Success   lipgloss.Color
	Failure   lipgloss.Color
}

// TMDBPalette is the default palette, taken from the service's own branding.
var TMDBPalette = Palette{
	Primary:   lipgloss.Color("#01345c"),
	Secondary: lipgloss.Color("#0d5a8a"),
	Accent:    lipgloss.Color("#01b4e4"),
	Light:     lipgloss.Color("#f8f8f8"),
	Muted:     lipgloss.Color("#9ba8c0"),
	Success:   lipgloss.Color("#90cea1"),
	Failure:   lipgloss.Color("#f04c56"),
}

// Glyphs are the markers drawn next to entities and results.
type Glyphs struct {
	Kinds   map[provider.EntityKind]string
	Unknown string
	Image   string
	OK      string
	Fail    string
}

func (g Glyphs) clone() Glyphs {
	g.Kinds = maps.Clone(g.Kinds)
	return g
}

// EmojiGlyphs returns the glyphs used on capable terminals.
func EmojiGlyphs() Glyphs {
	return Glyphs{
		Kinds: map[provider.EntityKind]string{
			provider.KindMovie:      "🎬",
			provider.KindMusicVideo: "🎵",
			provider.KindTrailer:    "🎞",
			provider.KindSeries:     "📺",
			provider.KindSeason:     "📁",
			provider.KindEpisode:    "▶",
			provider.KindPerson:     "👤",
			provider.KindCollection: "📚",
		},
		Unknown: "❓",
		Image:   "🖼",
		OK:      "✅",
		Fail:    "❌",
	}
}

// ASCIIGlyphs returns glyphs that render on any terminal.
func ASCIIGlyphs() Glyphs {
	return Glyphs{
		Kinds: map[provider.EntityKind]string{
			provider.KindMovie:      "[M]",
			provider.KindMusicVideo: "[V]",
			provider.KindTrailer:    "[T]",
			provider.KindSeries:     "[TV]",
			provider.KindSeason:     "[S]",
			provider.KindEpisode:    "[E]",
			provider.KindPerson:     "[P]",
			provider.KindCollection: "[C]",
		},
		Unknown: "[?]",
		Image:   "[I]",
		OK:      "[v]",
		Fail:    "[!]",
	}
}

// BadgeKind selects a badge color scheme.
type BadgeKind int

const (
	BadgeInfo BadgeKind = iota
	BadgeSuccess
	BadgeError
	BadgeMuted
)

// Theme holds a palette, glyphs and the styles built from them. The zero
// value is not usable; construct one with New.
type Theme struct {
	palette      Palette
	glyphs       Glyphs
	border       lipgloss.Border
	panelPadding int
	statusPad    int

	header lipgloss.Style
	status lipgloss.Style
	panel  lipgloss.Style
	badges map[BadgeKind]lipgloss.Style
}

// Option adjusts a Theme before its styles are built.
type Option func(*Theme)

// WithPalette replaces the palette.
func WithPalette(p Palette) Option {
	return func(t *Theme) { t.palette = p }
}

// WithGlyphs replaces the glyph set.
func WithGlyphs(g Glyphs) Option {
	return func(t *Theme) { t.glyphs = g.clone() }
}

// WithBorder replaces the panel border.
func WithBorder(b lipgloss.Border) Option {
	return func(t *Theme) { t.border = b }
}

// WithPadding sets the panel padding and the horizontal status bar padding.
func WithPadding(panel, status int) Option {
	return func(t *Theme) {
		t.panelPadding = panel
		t.statusPad = status
	}
}

// New builds a Theme. Glyphs default to ASCII on terminals that are unlikely
// to render emoji.
func New(opts ...Option) Theme {
	t := Theme{
		palette:      TMDBPalette,
		glyphs:       EmojiGlyphs(),
		border:       lipgloss.RoundedBorder(),
		panelPadding: 1,
		statusPad:    1,
	}
	if ASCIIPreferred() {
		t.glyphs = ASCIIGlyphs()
	}
	for _, opt := range opts {
		opt(&t)
	}
	t.build()
	return t
}

// Default is New with no options.
func Default() Theme {
	return New()
}

func (t *Theme) build() {
	p := t.palette

	t.header = lipgloss.NewStyle().
		Bold(true).
		Background(p.Primary).
		Foreground(p.Light).
		Align(lipgloss.Center)
	t.status = lipgloss.NewStyle().
		Background(p.Secondary).
		Foreground(p.Light).
		Padding(0, t.statusPad)
	t.panel = lipgloss.NewStyle().
		Border(t.border).
		BorderForeground(p.Accent).
		Padding(t.panelPadding)

	badge := lipgloss.NewStyle().Padding(0, 1).Bold(true)
	t.badges = map[BadgeKind]lipgloss.Style{
		BadgeInfo:    badge.Background(p.Accent).Foreground(p.Primary),
		BadgeSuccess: badge.Background(p.Success).Foreground(p.Primary),
		BadgeError:   badge.Background(p.Failure).Foreground(p.Light),
		BadgeMuted:   badge.Background(p.Muted).Foreground(p.Light),
	}
}

// Palette returns the theme colors.
func (t Theme) Palette() Palette { return t.palette }

// Glyphs returns a copy of the glyph set.
func (t Theme) Glyphs() Glyphs { return t.glyphs.clone() }

// KindGlyph returns the marker for kind, or the unknown marker.
func (t Theme) KindGlyph(kind provider.EntityKind) string {
	if g, ok := t.glyphs.Kinds[kind]; ok && g != "" {
		return g
	}
	return t.glyphs.Unknown
}

// Header styles view titles.
func (t Theme) Header() lipgloss.Style { return t.header }

// StatusBar styles the footer line.
func (t Theme) StatusBar() lipgloss.Style { return t.status }

// Panel styles bordered content blocks.
func (t Theme) Panel() lipgloss.Style { return t.panel }

// Badge returns the style for kind, falling back to the info badge.
func (t Theme) Badge(kind BadgeKind) lipgloss.Style {
	if s, ok := t.badges[kind]; ok {
		return s
	}
	return t.badges[BadgeInfo]
}

// ProgressGradient returns the start and end colors for progress bars.
func (t Theme) ProgressGradient() (string, string) {
	return string(t.palette.Secondary), string(t.palette.Accent)
}

// ASCIIPreferred reports whether the current terminal is likely to mangle
// emoji: remote sessions, dumb terminals and Windows consoles.
func ASCIIPreferred() bool {
	for _, key := range []string{"SSH_CLIENT", "SSH_TTY", "SSH_CONNECTION"} {
		if os.Getenv(key) != "" {
			return true
		}
	}
	if os.Getenv("TERM") == "dumb" {
		return true
	}
	return runtime.GOOS == "windows"
}
