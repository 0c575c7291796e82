package cli

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ppiankov/clauseguard/internal/model"
	"github.com/stretchr/testify/require"
)

var testWAV = []byte("RIFF\x24\x00\x00\x00WAVEfmt ")

func clauseService(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/get_clauses", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"clauses":[{"id":1,"clause_text":"You waive all rights to a refund.","severity":"high","reason":"No money back."}]}`))
	})
	mux.HandleFunc("/conversation_clauses", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "audio/wav")
		w.Header().Set("Content-Disposition", `attachment; filename="podcast.wav"`)
		_, _ = w.Write(testWAV)
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func runScript(t *testing.T, baseURL, script string) string {
	t.Helper()
	cfg := model.DefaultConfig()
	cfg.API.BaseURL = baseURL
	cfg.Output.Color = false

	var out bytes.Buffer
	s := newSession(newApp(cfg), strings.NewReader(script), &out)
	require.NoError(t, s.run(context.Background()))
	s.close()
	return out.String()
}

func TestSession_AnalyzeText(t *testing.T) {
	server := clauseService(t)

	out := runScript(t, server.URL, strings.Join([]string{
		"text You waive all rights to a refund.",
		"submit",
		"wait",
		"status",
		"show",
		"quit",
	}, "\n"))

	require.Contains(t, out, "✓ Text set (33 chars)")
	require.Contains(t, out, "✓ Analysis ready: 1 clause: 1 high, 0 medium, 0 low")
	require.Contains(t, out, "Input:  text:33 chars")
	require.Contains(t, out, "State:  idle")
	require.Contains(t, out, "HIGH")
	require.Contains(t, out, "refund")
}

func TestSession_NarrateAndSave(t *testing.T) {
	server := clauseService(t)
	path := filepath.Join(t.TempDir(), "explain.wav")

	out := runScript(t, server.URL, strings.Join([]string{
		"mode podcast",
		"paste",
		"We may sell your data.",
		"We may change these terms.",
		".",
		"submit",
		"wait",
		"save " + path,
		"clear",
		"save",
		"mode",
		"quit",
	}, "\n"))

	require.Contains(t, out, "✓ Mode: narrated")
	require.Contains(t, out, "✓ Text set (49 chars)")
	require.Contains(t, out, "✓ Narration ready: podcast.wav (audio/wav")
	require.Contains(t, out, "✓ Saved "+path)
	require.Contains(t, out, "No audio to save.")
	require.Contains(t, out, "Mode: narrated")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, testWAV, data)
}

func TestSession_NothingSelected(t *testing.T) {
	out := runScript(t, "http://127.0.0.1:1", "submit\nshow\nplay\ncancel\nfrobnicate\n")

	require.NotContains(t, out, "Submitting")
	require.NotContains(t, out, "✗")
	require.Contains(t, out, "No result yet.")
	require.Contains(t, out, "No audio loaded.")
	require.Contains(t, out, "Nothing to cancel.")
	require.Contains(t, out, `Unknown command "frobnicate"`)
}

func TestSession_ServiceFailureKeepsState(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		w.WriteHeader(http.StatusRequestEntityTooLarge)
	}))
	t.Cleanup(server.Close)

	out := runScript(t, server.URL, "text some terms\nsubmit\nwait\nstatus\nquit\n")

	require.Contains(t, out, "✗ The document is too large for the analysis service.")
	require.Contains(t, out, "Result: none")
	require.Contains(t, out, "Input:  text:10 chars")
}

func TestSession_FileSelection(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tos.txt")
	require.NoError(t, os.WriteFile(path, []byte("Terms apply."), 0644))

	out := runScript(t, "http://127.0.0.1:1", "file "+path+"\nstatus\nremove\nstatus\nfile\nquit\n")

	require.Contains(t, out, "✓ Selected tos.txt (text/plain, 12 bytes)")
	require.Contains(t, out, "Input:  file:tos.txt")
	require.Contains(t, out, "Input:  none")
	require.Contains(t, out, "Usage: file <path>")
}
