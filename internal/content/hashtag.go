package content

import (
	"strings"

	"golang.org/x/net/html"
)

var hashtagScrub = strings.NewReplacer("#", "", "?", "", ".", "", ",", "", "!", "")

// TagHashtags wraps every #word in rendered HTML with a hash span and
// returns the distinct tags, lower-cased, in order of first appearance.
// Text inside links and code is left alone.
func TagHashtags(src string) (string, []string) {
	tags := []string{}
	seen := map[string]bool{}

	out := rewriteText(src, func(raw string) string {
		return mapWords(raw, func(word string) string {
			if !strings.HasPrefix(word, "#") {
				return word
			}
			key := strings.ToLower(strings.TrimSpace(hashtagScrub.Replace(html.UnescapeString(word))))
			if key == "" {
				return word
			}
			if !seen[key] {
				seen[key] = true
				tags = append(tags, key)
			}
			return `<span class="hash" data-hash="` + html.EscapeString(key) + `">` + word + `</span>`
		})
	})

	return out, tags
}
