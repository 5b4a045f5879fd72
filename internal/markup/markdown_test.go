package markup

import (
	"testing"
)

func TestInlineToHTML(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"plain", "Once upon a time", "Once upon a time"},
		{"bold stars", "a **brave** fox", "a <b>brave</b> fox"},
		{"bold underscores", "a __brave__ fox", "a <b>brave</b> fox"},
		{"italic star", "a *quiet* night", "a <i>quiet</i> night"},
		{"italic underscore", "a _quiet_ night", "a <i>quiet</i> night"},
		{"snake case kept", "file_name_here", "file_name_here"},
		{"strike", "~~gone~~", "<s>gone</s>"},
		{"escapes html", `<script>"x"</script>`, "&lt;script&gt;&quot;x&quot;&lt;/script&gt;"},
		{"escapes inside bold", "**a & b**", "<b>a &amp; b</b>"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := InlineToHTML(tt.in); got != tt.want {
				t.Errorf("InlineToHTML(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestBlockLine(t *testing.T) {
	tests := []struct {
		in     string
		want   string
		wantOK bool
	}{
		{"# The Moon Fox", "<h3>The Moon Fox</h3>", true},
		{"## Chapter **One**", "<h4>Chapter <b>One</b></h4>", true},
		{"#### Deep", "<h6>Deep</h6>", true},
		{"---", "<hr>", true},
		{"***", "<hr>", true},
		{"#NoSpace", "", false},
		{"Just prose.", "", false},
	}
	for _, tt := range tests {
		got, ok := blockLine(tt.in)
		if ok != tt.wantOK || got != tt.want {
			t.Errorf("blockLine(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}
