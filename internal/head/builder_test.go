package head

import (
	"strings"
	"testing"
)

func TestRenderDefaultsAndEscaping(t *testing.T) {
	b := New()
	out := string(b.Render())
	if !strings.HasPrefix(out, "<title>Formstep</title>") {
		t.Fatalf("default title missing: %s", out)
	}

	b.SetTitle("  ")
	b.SetTitle(`Q&A <survey>`)
	b.Property("og:title", `Q&A "survey"`)
	out = string(b.Render())
	if !strings.Contains(out, "<title>Q&amp;A &lt;survey&gt;</title>") {
		t.Fatalf("title not escaped: %s", out)
	}
	if !strings.Contains(out, `<meta property="og:title" content="Q&amp;A &#34;survey&#34;">`) {
		t.Fatalf("property not escaped: %s", out)
	}
}

func TestMetaLastValueWinsFirstPositionKept(t *testing.T) {
	b := New()
	b.NoIndex()
	b.Meta("viewport", "width=375")
	out := string(b.Render())

	if strings.Count(out, `name="viewport"`) != 1 {
		t.Fatalf("viewport duplicated: %s", out)
	}
	vp := strings.Index(out, `content="width=375"`)
	robots := strings.Index(out, `name="robots"`)
	if vp < 0 || robots < 0 || vp > robots {
		t.Fatalf("unexpected order: %s", out)
	}
}
