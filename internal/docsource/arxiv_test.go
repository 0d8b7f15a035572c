package docsource

import "testing"

func TestArxivPDFURL(t *testing.T) {
	cases := []struct {
		input string
		want  string
		ok    bool
	}{
		{input: "https://arxiv.org/abs/2101.00001", want: "https://arxiv.org/pdf/2101.00001.pdf", ok: true},
		{input: "https://arxiv.org/pdf/2101.00001v2.pdf", want: "https://arxiv.org/pdf/2101.00001v2.pdf", ok: true},
		{input: "arXiv:2101.00001", want: "https://arxiv.org/pdf/2101.00001.pdf", ok: true},
		{input: "arxiv:hep-th/9901001", want: "https://arxiv.org/pdf/hep-th/9901001.pdf", ok: true},
		{input: "https://example.com/report.pdf"},
		{input: "2101.00001.pdf"},
		{input: "arxiv:"},
		{input: "arxiv:not an id"},
	}
	for _, tc := range cases {
		got, ok := arxivPDFURL(tc.input)
		if ok != tc.ok || got != tc.want {
			t.Fatalf("arxivPDFURL(%q) = %q, %v; want %q, %v", tc.input, got, ok, tc.want, tc.ok)
		}
	}
}
