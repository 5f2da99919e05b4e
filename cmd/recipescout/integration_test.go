package main

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/csheth/recipescout/internal/tuitest"
)

const searchFixture = `{"from":1,"to":2,"count":2,"_links":{},"hits":[
{"recipe":{"label":"chicken curry","shareAs":"http://www.edamam.com/recipe/chicken-curry-0123456789abcdef0123456789abcdef/chicken","url":"https://example.test/curry","source":"Test Kitchen","calories":812.4,"totalTime":45,"yield":4,"images":{"SMALL":{"url":"https://img.test/curry.jpg","width":200,"height":200}}}},
{"recipe":{"label":"lemon chicken","shareAs":"http://www.edamam.com/recipe/lemon-chicken-abcdef0123456789abcdef0123456789/chicken","url":"https://example.test/lemon","source":"Test Kitchen","calories":530,"totalTime":30,"yield":2,"image":"https://img.test/lemon.jpg"}}
]}`

func fakeUpstream(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/recipes/v2", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, searchFixture)
	})
	mux.HandleFunc("/auto-complete", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `[%q]`, r.URL.Query().Get("q")+" curry")
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestRecipeScoutSearchAndFavorite(t *testing.T) {
	if testing.Short() {
		t.Skip("builds and drives the binary")
	}
	t.Parallel()

	upstream := fakeUpstream(t)
	cmdDir := moduleDir(t)
	binary := buildBinary(t, cmdDir)
	tmp := t.TempDir()

	rec, err := tuitest.Run(context.Background(), tuitest.Config{
		Command: []string{binary, "-no-alt-screen", "-favorites", "memory", "-log-file", filepath.Join(tmp, "tui.log")},
		Dir:     cmdDir,
		Env: []string{
			"XDG_CONFIG_HOME=" + tmp,
			"RECIPESCOUT_SEARCH_URL=" + upstream.URL + "/api/recipes/v2",
			"RECIPESCOUT_AUTOCOMPLETE_URL=" + upstream.URL + "/auto-complete",
		},
		Width:  100,
		Height: 30,
		Steps: []tuitest.Step{
			tuitest.Type(500*time.Millisecond, "chicken"),
			tuitest.Press(300*time.Millisecond, tuitest.KeyEnter),
			tuitest.PressWhen("Lemon Chicken", tuitest.KeyEsc),
			tuitest.Press(200*time.Millisecond, tuitest.KeyCtrlF),
			tuitest.Press(time.Second, tuitest.KeyTab),
			tuitest.PressWhen("Favorites (1)", tuitest.KeyCtrlC),
		},
		Timeout:        10 * time.Second,
		AllowInterrupt: true,
	})
	if err != nil {
		t.Fatalf("run CLI: %v", err)
	}

	frame, ok := rec.FrameContaining("Chicken Curry")
	if !ok {
		last, _ := rec.FinalFrame()
		t.Fatalf("search results never rendered; last frame:\n%s", last.Plain)
	}
	if !strings.Contains(frame.Plain, "Lemon Chicken") {
		t.Fatalf("second hit missing:\n%s", frame.Plain)
	}
	if _, ok := rec.FrameContaining("Favorites (1)"); !ok {
		last, _ := rec.FinalFrame()
		t.Fatalf("favorite was not saved; last frame:\n%s", last.Plain)
	}
}

func moduleDir(t *testing.T) string {
	t.Helper()
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatalf("runtime caller unavailable")
	}
	return filepath.Dir(file)
}

func buildBinary(t *testing.T, cmdDir string) string {
	t.Helper()
	name := "recipescout-integration"
	if runtime.GOOS == "windows" {
		name += ".exe"
	}
	binPath := filepath.Join(t.TempDir(), name)
	cmd := exec.Command("go", "build", "-o", binPath, ".")
	cmd.Dir = cmdDir
	if output, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("build CLI: %v\n%s", err, output)
	}
	return binPath
}
