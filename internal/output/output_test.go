package output

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/bridle-dev/bridle/internal/terminal"
)

// testTerminal returns a terminal.Info for testing (non-TTY, no color).
func testTerminal() *terminal.Info {
	return &terminal.Info{
		IsTTY:   false,
		NoColor: true,
		Width:   80,
		Height:  24,
	}
}

func TestWriter_Print(t *testing.T) {
	tests := []struct {
		name  string
		quiet bool
		want  string
	}{
		{name: "normal output", quiet: false, want: "Hello, world!"},
		{name: "quiet mode suppresses output", quiet: true, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer

			w := NewWriter(&buf, &buf, testTerminal())
			w.Quiet = tt.quiet

			w.Print("Hello, %s!", "world")

			if got := buf.String(); got != tt.want {
				t.Errorf("Print() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestWriter_ErrorIgnoresQuiet(t *testing.T) {
	var out, errOut bytes.Buffer

	w := NewWriter(&out, &errOut, testTerminal())
	w.Quiet = true

	w.Error("bad %d\n", 1)
	w.Failure("broken")

	if out.Len() != 0 {
		t.Errorf("stdout = %q, want empty", out.String())
	}

	want := "bad 1\n" + XMark + " broken\n"
	if errOut.String() != want {
		t.Errorf("stderr = %q, want %q", errOut.String(), want)
	}
}

func TestWriter_PrintJSON(t *testing.T) {
	var buf bytes.Buffer

	w := NewWriter(&buf, &buf, testTerminal())
	w.Quiet = true

	if err := w.PrintJSON(map[string]string{"url": "https://x.example/?a=1&b=2"}); err != nil {
		t.Fatalf("PrintJSON() error = %v", err)
	}

	want := "{\n  \"url\": \"https://x.example/?a=1&b=2\"\n}\n"
	if buf.String() != want {
		t.Errorf("PrintJSON() = %q, want %q", buf.String(), want)
	}
}

func TestWriter_StatusLines(t *testing.T) {
	var buf bytes.Buffer

	w := NewWriter(&buf, &buf, testTerminal())
	w.Success("saved %s", "github")
	w.Warning("careful")
	w.Info("note")
	w.Muted("quiet text")

	want := strings.Join([]string{
		CheckMark + " saved github",
		WarningMark + " careful",
		InfoMark + " note",
		"quiet text",
		"",
	}, "\n")

	if buf.String() != want {
		t.Errorf("status output = %q, want %q", buf.String(), want)
	}
}

func TestWriter_Table(t *testing.T) {
	var buf bytes.Buffer

	w := NewWriter(&buf, &buf, testTerminal())
	w.Table([]string{"name", "transport"}, [][]string{
		{"github", "stdio"},
		{"remote-search", "http"},
	})

	want := "NAME           TRANSPORT\n" +
		"github         stdio\n" +
		"remote-search  http\n"

	if buf.String() != want {
		t.Errorf("Table() =\n%s\nwant\n%s", buf.String(), want)
	}
}

func TestWriter_Write(t *testing.T) {
	var buf bytes.Buffer

	w := NewWriter(&buf, &buf, testTerminal())
	w.Quiet = true

	n, err := w.Write([]byte("data"))
	if err != nil || n != 4 {
		t.Fatalf("Write() = %d, %v; want 4, nil", n, err)
	}

	if buf.Len() != 0 {
		t.Errorf("quiet Write() leaked %q", buf.String())
	}
}

func TestWriter_Context(t *testing.T) {
	w := NewWriter(&bytes.Buffer{}, &bytes.Buffer{}, testTerminal())

	ctx := w.WithContext(context.Background())
	if got := FromContext(ctx); got != w {
		t.Error("FromContext() did not return stored writer")
	}
}

func TestWriter_SetNoColor(t *testing.T) {
	term := &terminal.Info{IsTTY: true}
	w := NewWriter(&bytes.Buffer{}, &bytes.Buffer{}, term)

	w.SetNoColor(true)

	if w.Terminal().ColorEnabled() {
		t.Error("ColorEnabled() = true after SetNoColor(true)")
	}
}

func TestSpinner_DisabledIsSilent(t *testing.T) {
	var buf bytes.Buffer

	w := NewWriter(&buf, &buf, testTerminal())

	s := w.Spinner("Checking harnesses")
	if !s.disabled {
		t.Fatal("spinner should be disabled on non-TTY")
	}

	s.Start()
	s.UpdateMessage("Reading goose")
	s.Stop()

	if buf.Len() != 0 {
		t.Errorf("disabled spinner wrote %q", buf.String())
	}
}

func TestStatusSymbols(t *testing.T) {
	for _, sym := range []string{CheckMark, XMark, WarningMark, InfoMark} {
		if sym == "" {
			t.Error("status symbol is empty")
		}
	}
}
