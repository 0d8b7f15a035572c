package docsource

import (
	"regexp"
	"strings"
)

var (
	arxivURLRegexp = regexp.MustCompile(`(?i)^https?://(?:www\.|export\.)?arxiv\.org/(?:abs|pdf)/([0-9a-z.\-/]+?)(?:\.pdf)?/?$`)
	arxivIDRegexp  = regexp.MustCompile(`(?i)^[0-9a-z.\-/]+$`)
)

// arxivPDFURL rewrites an arXiv abstract link or an "arXiv:<id>" reference
// to the paper's PDF URL. Plain paths and other URLs are left alone.
func arxivPDFURL(input string) (string, bool) {
	id := ""
	if m := arxivURLRegexp.FindStringSubmatch(input); len(m) > 1 {
		id = m[1]
	} else if len(input) > len("arxiv:") && strings.EqualFold(input[:len("arxiv:")], "arxiv:") {
		id = strings.TrimSpace(input[len("arxiv:"):])
		id = strings.TrimSuffix(id, ".pdf")
	}
	if id == "" || !arxivIDRegexp.MatchString(id) {
		return "", false
	}
	return "https://arxiv.org/pdf/" + id + ".pdf", true
}
