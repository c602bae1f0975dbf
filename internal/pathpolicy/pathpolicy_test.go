package pathpolicy

import (
	"strings"
	"testing"
)

func TestCheck(t *testing.T) {
	p := Default()
	tests := []struct {
		path  string
		op    Op
		allow bool
	}{
		{"index.html", Read, true},
		{"index.html", Write, true},
		{"about/index.html", Delete, true},
		{"src/components/Hero.tsx", Write, true},
		{"public/logo.svg", Write, true},
		{"public/hero.png", Write, false},
		{"public/hero.png", Delete, true},
		{"public/hero.png", Read, true},
		{"README", Write, false},
		{"../etc/passwd", Read, false},
		{"src/../api/read.js", Write, false},
		{"src//index.js", Read, false},
		{"", Read, false},
		{".env", Read, false},
		{"config/.env.local", Read, false},
		{".environment.md", Read, true},
		{"src/secrets.json", Read, false},
		{"docs/PASSWORD-reset.md", Write, false},
		{"certs/server.pem", Read, false},
		{"deploy/id_rsa.key", Delete, false},
		{".git/config", Read, false},
		{"api/read.js", Read, true},
		{"api/read.js", Write, false},
		{"api/read.js", Delete, false},
		{"package.json", Read, true},
		{"package.json", Write, false},
		{"package-lock.json", Delete, false},
		{"node_modules/react/index.js", Write, false},
		{"vercel.json", Write, true},
		{"vercel.json", Delete, false},
		{"site/vercel.json", Delete, false},
		{"styles/main.CSS", Write, true},
	}
	for _, tt := range tests {
		t.Run(tt.op.String()+":"+tt.path, func(t *testing.T) {
			d := p.Check(tt.path, tt.op)
			if d.Allowed != tt.allow {
				t.Fatalf("Check(%q, %s) = %+v, want allowed=%v", tt.path, tt.op, d, tt.allow)
			}
			if !d.Allowed && d.Reason == "" {
				t.Fatal("rejection without reason")
			}
		})
	}
}

func TestCheck_TraversalAlwaysDenied(t *testing.T) {
	p := Default()
	paths := []string{
		"..", "a/..", "../index.html", "a/../../b.js", "a//b.js", "//x.md", "foo..bar.js",
		".", "./index.html", "./api/read.js", "api/./x.js", "./node_modules/x.js", "about/.",
	}
	for _, path := range paths {
		for _, op := range []Op{Read, Write, Delete} {
			if d := p.Check(path, op); d.Allowed {
				t.Errorf("Check(%q, %s) allowed", path, op)
			}
		}
	}
}

func TestCheck_NonCanonicalDenyListed(t *testing.T) {
	p := Default()
	tests := []struct {
		path   string
		reason string
	}{
		{"./api/read.js", "traversal"},
		{"api/./read.js", "traversal"},
		{"x/../api/read.js", "traversal"},
		{"./.env", "traversal"},
		{"public/../.env.local", "traversal"},
		{"./node_modules/left-pad/index.js", "traversal"},
		{"./package.json", "traversal"},
		{"./.git/config", "traversal"},
		{"./vercel.json", "traversal"},
		{"api//read.js", "empty segment"},
	}
	for _, tt := range tests {
		for _, op := range []Op{Read, Write, Delete} {
			t.Run(op.String()+"/"+tt.path, func(t *testing.T) {
				d := p.Check(tt.path, op)
				if d.Allowed {
					t.Fatalf("Check(%q, %s) allowed", tt.path, op)
				}
				if !strings.Contains(d.Reason, tt.reason) {
					t.Fatalf("reason = %q, want it to mention %q", d.Reason, tt.reason)
				}
			})
		}
	}
}

func TestNew_ExtraDeny(t *testing.T) {
	p, err := New(`^drafts/`)
	if err != nil {
		t.Fatal(err)
	}
	if d := p.Check("drafts/post.md", Read); d.Allowed {
		t.Fatal("expected drafts to be denied")
	}
	if d := p.Check("posts/post.md", Read); !d.Allowed {
		t.Fatalf("unexpected denial: %s", d.Reason)
	}
	if _, err := New(`(`); err == nil {
		t.Fatal("expected invalid pattern error")
	}
}

func TestNormalize(t *testing.T) {
	if got := Normalize(" /index.html "); got != "index.html" {
		t.Fatalf("got %q", got)
	}
	if got := Normalize("//x"); got != "/x" {
		t.Fatalf("got %q", got)
	}
	if got := Normalize("/../x"); got != "../x" {
		t.Fatalf("got %q", got)
	}
	if got := Normalize("about/"); got != "about" {
		t.Fatalf("got %q", got)
	}
	if got := Normalize("./api/read.js"); got != "./api/read.js" {
		t.Fatalf("Normalize must not clean dot segments, got %q", got)
	}
}

func TestCheckUpload(t *testing.T) {
	t.Run("allowed", func(t *testing.T) {
		for _, ct := range UploadTypes {
			if d := CheckUpload(ct, 1024); !d.Allowed {
				t.Errorf("%s rejected: %s", ct, d.Reason)
			}
		}
	})
	t.Run("bad_type", func(t *testing.T) {
		d := CheckUpload("application/javascript", 10)
		if d.Allowed {
			t.Fatal("expected rejection")
		}
	})
	t.Run("exact_limit", func(t *testing.T) {
		if d := CheckUpload("image/png", MaxUploadBytes); !d.Allowed {
			t.Fatalf("rejected at limit: %s", d.Reason)
		}
	})
	t.Run("too_large", func(t *testing.T) {
		d := CheckUpload("image/png", 9<<20)
		if d.Allowed {
			t.Fatal("expected rejection")
		}
		if !strings.Contains(d.Reason, "9437184 bytes") {
			t.Fatalf("reason should report measured size: %q", d.Reason)
		}
	})
	t.Run("one_byte_over", func(t *testing.T) {
		d := CheckUpload("image/png", MaxUploadBytes+1)
		if d.Allowed {
			t.Fatal("expected rejection")
		}
		if want := "file too large: 8388609 bytes (max 8388608)"; d.Reason != want {
			t.Fatalf("reason = %q, want %q", d.Reason, want)
		}
	})
}

func TestUploadPath(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Hero Image.PNG", "public/uploads/hero-image.png"},
		{"../../api/read.js", "public/uploads/read.js"},
		{`C:\Users\me\Photo_1.jpg`, "public/uploads/photo-1.jpg"},
		{"façade.webp", "public/uploads/fa--ade.webp"},
	}
	for _, tt := range tests {
		got, err := UploadPath("", tt.in)
		if err != nil {
			t.Fatalf("UploadPath(%q): %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("UploadPath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
	for _, bad := range []string{"", ".", "..", "/"} {
		if _, err := UploadPath("img", bad); err == nil {
			t.Errorf("UploadPath(%q) should fail", bad)
		}
	}
	got, err := UploadPath("images/", "a.png")
	if err != nil || got != "images/a.png" {
		t.Fatalf("got %q, %v", got, err)
	}
}
