package nina

import "testing"

func TestStripHTML(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "Sturmwarnung", "Sturmwarnung"},
		{"paragraphs", "<p>Erster Absatz</p><p>Zweiter Absatz</p>", "Erster Absatz\nZweiter Absatz\n"},
		{"linebreaks", "oben<br>unten<br/>ende", "oben\nunten\nende"},
		{"anchor", `Mehr dazu: <a href="https://example.org/info">hier</a>`, "Mehr dazu: hier: https://example.org/info"},
		{"empty anchor", `Text<a href="https://example.org/info"></a>weiter`, "Textweiter"},
		{"anchor without href", `<a>Link</a>`, "Link"},
		{"unknown tags dropped", "<div><b>fett</b></div>", "fett"},
		{"unterminated tag", "abc<def", "abc"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := StripHTML(c.in); got != c.want {
				t.Errorf("StripHTML(%q) = %q, want %q", c.in, got, c.want)
			}
		})
	}
}

func TestTranslateTime(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"2025-03-01T10:30:00+01:00", "2025-03-01 10:30"},
		{"2025-03-01T10:30:00Z", "2025-03-01 10:30"},
		{"gestern", "gestern"},
		{"", ""},
	}
	for _, c := range cases {
		if got := translateTime(c.in); got != c.want {
			t.Errorf("translateTime(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestWarningURL(t *testing.T) {
	got := warningURL("mow.1", "Sturm über Berlin")
	want := "https://warnung.bund.de/meldung/mow.1/Sturm_über_Berlin"
	if got != want {
		t.Fatalf("warningURL = %q, want %q", got, want)
	}
}
