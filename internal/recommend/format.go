package recommend

import (
	"fmt"
	"html"
	"strings"

	"kino-bot/internal/repo"
)

// UnknownGenre labels movies whose description carries no genre line.
const UnknownGenre = "Unknown"

const (
	untitled     = "Untitled movie"
	noMoviesText = "📭 No movies available yet"
	noGenresText = "📭 No movies found by genre"
)

// genreMarkers are matched in order on each description line. "Janri:" keeps
// descriptions written for the Uzbek channel working.
var genreMarkers = []string{"Genre:", "Janri:"}

// GenreLineIndex returns the index of the first line carrying a genre marker and the marker position, or -1.
func GenreLineIndex(lines []string) (line int, pos int, marker string) {
	for i, l := range lines {
		for _, m := range genreMarkers {
			if p := strings.Index(l, m); p >= 0 {
				return i, p, m
			}
		}
	}
	return -1, -1, ""
}

// ParseGenre extracts the genre from a description. The first matching line wins.
func ParseGenre(description string) string {
	lines := strings.Split(description, "\n")
	i, pos, marker := GenreLineIndex(lines)
	if i < 0 {
		return UnknownGenre
	}
	genre := strings.TrimSpace(lines[i][pos+len(marker):])
	if genre == "" {
		return UnknownGenre
	}
	return genre
}

// Title returns the first non-blank description line.
func Title(description string) string {
	for _, l := range strings.Split(description, "\n") {
		if t := strings.TrimSpace(l); t != "" {
			return t
		}
	}
	return untitled
}

// FormatList renders a numbered list with title, genre and code per movie.
func FormatList(title string, movies []repo.Movie) string {
	return FormatListFrom(title, movies, 1)
}

// FormatListFrom is FormatList with numbering starting at first.
func FormatListFrom(title string, movies []repo.Movie, first int) string {
	if len(movies) == 0 {
		return noMoviesText
	}

	var b strings.Builder
	b.WriteString("<b>")
	b.WriteString(html.EscapeString(title))
	b.WriteString("</b>\n\n")
	for i, m := range movies {
		fmt.Fprintf(&b, "%d. <b>%s</b>\n", first+i, html.EscapeString(Title(m.Description)))
		fmt.Fprintf(&b, "   🎭 %s\n", html.EscapeString(ParseGenre(m.Description)))
		fmt.Fprintf(&b, "   🔢 Code: <code>%s</code>\n\n", html.EscapeString(m.Code))
	}
	return strings.TrimRight(b.String(), "\n")
}

// FormatGenres renders the genre view.
func FormatGenres(groups []GenreGroup) string {
	if len(groups) == 0 {
		return noGenresText
	}

	var b strings.Builder
	b.WriteString("<b>🎭 Top movies by genre</b>\n\n")
	for _, g := range groups {
		fmt.Fprintf(&b, "<b>#%s</b>\n", html.EscapeString(hashtag(g.Genre)))
		for _, m := range g.Movies {
			fmt.Fprintf(&b, "   • %s\n", html.EscapeString(Title(m.Description)))
			fmt.Fprintf(&b, "     🔢 Code: <code>%s</code>\n", html.EscapeString(m.Code))
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// FormatPage renders one page of the catalog listing.
func FormatPage(movies []repo.Movie, page, totalPages, pageSize int) string {
	if len(movies) == 0 {
		return noMoviesText
	}
	title := fmt.Sprintf("🎬 All movies (page %d/%d)", page, totalPages)
	return FormatListFrom(title, movies, (page-1)*pageSize+1)
}

// FormatRecommendation renders a single pick.
func FormatRecommendation(m repo.Movie) string {
	return fmt.Sprintf("<b>⭐ Recommended for you</b>\n\n<b>%s</b>\n🎭 %s\n🔢 Code: <code>%s</code>",
		html.EscapeString(Title(m.Description)),
		html.EscapeString(ParseGenre(m.Description)),
		html.EscapeString(m.Code))
}

// NoMovies is the text shown when a view has nothing to display.
func NoMovies() string {
	return noMoviesText
}

func hashtag(genre string) string {
	return strings.Join(strings.Fields(genre), "_")
}
