package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/codebuildervaibhav/conversation-insights/internal/aiclient"
	"github.com/codebuildervaibhav/conversation-insights/internal/logging"
	"github.com/codebuildervaibhav/conversation-insights/internal/pipeline"
	"github.com/codebuildervaibhav/conversation-insights/internal/samples"
	"github.com/codebuildervaibhav/conversation-insights/internal/storage"
	"github.com/codebuildervaibhav/conversation-insights/internal/transcription"
	"github.com/codebuildervaibhav/conversation-insights/internal/types"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

var testLimits = transcription.UploadLimits{
	MaxBytes:       1024,
	AllowedFormats: []string{"mp3", "wav"},
}

// fakeProcessor records the job and returns canned results or an error
type fakeProcessor struct {
	err     error
	job     *pipeline.Job
	content []byte
}

func (f *fakeProcessor) Process(ctx context.Context, job *pipeline.Job, progress pipeline.ProgressFunc) (*types.Results, error) {
	f.job = job
	f.content, _ = os.ReadFile(job.FilePath)
	if progress != nil {
		progress(pipeline.StepTranscribing, pipeline.StepMessage(pipeline.StepTranscribing))
		progress(pipeline.StepComplete, pipeline.StepMessage(pipeline.StepComplete))
	}
	if job.RemoveAfter {
		os.Remove(job.FilePath)
	}
	if f.err != nil {
		return nil, f.err
	}
	return &types.Results{
		JobID:      job.ID,
		SourceFile: job.RequestName,
		SourceType: job.SourceType,
		Transcript: &types.TranscriptionResult{Text: "Where are we on batch 237?"},
		Insights:   json.RawMessage(`{"topics":["quality"]}`),
	}, nil
}

func newTestApp() *fiber.App {
	return fiber.New(fiber.Config{ErrorHandler: ErrorHandler(quietLogger())})
}

func multipartBody(t *testing.T, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		t.Fatal(err)
	}
	part.Write(content)
	w.Close()
	return body, w.FormDataContentType()
}

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func decode(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
}

func TestUploadHandler(t *testing.T) {
	upstream := &aiclient.UpstreamError{Service: "transcription", StatusCode: 401, Message: "Incorrect API key provided"}

	tests := []struct {
		name       string
		processor  Processor
		filename   string
		content    []byte
		wantStatus int
		wantCode   string
	}{
		{"success", &fakeProcessor{}, "meeting.MP3", []byte("audio"), 200, ""},
		{"missing key", nil, "meeting.mp3", []byte("audio"), 503, CodeMissingAPIKey},
		{"too large", &fakeProcessor{}, "meeting.mp3", make([]byte, 2048), 413, CodeFileTooLarge},
		{"bad format", &fakeProcessor{}, "notes.txt", []byte("text"), 400, CodeInvalidFormat},
		{"empty file", &fakeProcessor{}, "meeting.wav", nil, 400, CodeEmptyFile},
		{"upstream failure", &fakeProcessor{err: upstream}, "meeting.mp3", []byte("audio"), 502, CodeUpstream},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			files, err := storage.NewTempStorage(t.TempDir())
			if err != nil {
				t.Fatal(err)
			}
			app := newTestApp()
			app.Post("/api/process", NewUploadHandler(tt.processor, files, testLimits, quietLogger()).Handle)

			body, contentType := multipartBody(t, tt.filename, tt.content)
			req := httptest.NewRequest(http.MethodPost, "/api/process", body)
			req.Header.Set("Content-Type", contentType)

			resp, err := app.Test(req, -1)
			if err != nil {
				t.Fatalf("app.Test() error = %v", err)
			}
			if resp.StatusCode != tt.wantStatus {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}

			if tt.wantCode != "" {
				var eb errorBody
				decode(t, resp, &eb)
				if eb.Code != tt.wantCode {
					t.Errorf("code = %q, want %q", eb.Code, tt.wantCode)
				}
				if tt.wantCode == CodeUpstream && eb.Error != "Incorrect API key provided" {
					t.Errorf("error = %q, want the hosted message", eb.Error)
				}
				return
			}

			var res types.Results
			decode(t, resp, &res)
			if res.SourceFile != tt.filename || res.SourceType != types.SourceUpload {
				t.Errorf("results = %+v", res)
			}

			fp := tt.processor.(*fakeProcessor)
			if string(fp.content) != "audio" {
				t.Errorf("processor saw %q, want %q", fp.content, "audio")
			}
			if !fp.job.RemoveAfter {
				t.Error("uploads should be removed after processing")
			}
			if entries, _ := os.ReadDir(files.Dir()); len(entries) != 0 {
				t.Errorf("temp dir not empty: %d entries", len(entries))
			}
		})
	}
}

func TestUploadHandlerNoFile(t *testing.T) {
	files, _ := storage.NewTempStorage(t.TempDir())
	app := newTestApp()
	app.Post("/api/process", NewUploadHandler(&fakeProcessor{}, files, testLimits, quietLogger()).Handle)

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/api/process", nil), -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"too large", transcription.ErrFileTooLarge, 413, CodeFileTooLarge},
		{"format", transcription.ErrUnsupportedFormat, 400, CodeInvalidFormat},
		{"wrapped upstream", errors.Join(errors.New("analysis failed"), &aiclient.UpstreamError{Message: "rate limited"}), 502, CodeUpstream},
		{"timeout", context.DeadlineExceeded, 504, CodeTimeout},
		{"other", errors.New("boom"), 500, CodeProcessingFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classify(tt.err)
			if got.Status != tt.wantStatus || got.Code != tt.wantCode {
				t.Errorf("classify() = %d %s, want %d %s", got.Status, got.Code, tt.wantStatus, tt.wantCode)
			}
		})
	}
}

func TestErrorHandlerBodyLimit(t *testing.T) {
	app := fiber.New(fiber.Config{BodyLimit: 16, ErrorHandler: ErrorHandler(quietLogger())})
	app.Post("/api/process", func(c *fiber.Ctx) error { return c.SendStatus(200) })

	req := httptest.NewRequest(http.MethodPost, "/api/process", strings.NewReader(strings.Repeat("x", 64)))
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != fiber.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d, want 413", resp.StatusCode)
	}
	var eb errorBody
	decode(t, resp, &eb)
	if eb.Code != CodeFileTooLarge {
		t.Errorf("code = %q, want %q", eb.Code, CodeFileTooLarge)
	}
}

// fakeConn replays scripted websocket messages and records what is sent
type fakeConn struct {
	in   []wsMessage
	sent []StreamEvent
}

type wsMessage struct {
	kind int
	data []byte
}

func (f *fakeConn) ReadMessage() (int, []byte, error) {
	if len(f.in) == 0 {
		return 0, nil, io.EOF
	}
	m := f.in[0]
	f.in = f.in[1:]
	return m.kind, m.data, nil
}

func (f *fakeConn) WriteJSON(v interface{}) error {
	f.sent = append(f.sent, v.(StreamEvent))
	return nil
}

func TestStreamHandler(t *testing.T) {
	t.Run("streams progress and result", func(t *testing.T) {
		files, _ := storage.NewTempStorage(t.TempDir())
		proc := &fakeProcessor{}
		h := NewStreamHandler(proc, files, testLimits, quietLogger())
		conn := &fakeConn{in: []wsMessage{
			{websocket.TextMessage, []byte("standup")},
			{websocket.BinaryMessage, []byte("chunk1")},
			{websocket.BinaryMessage, []byte("chunk2")},
			{websocket.TextMessage, []byte("END")},
		}}

		h.serve(context.Background(), conn)

		var kinds []string
		for _, ev := range conn.sent {
			kinds = append(kinds, ev.Type)
		}
		want := []string{EventAccepted, EventProgress, EventProgress, EventResult}
		if strings.Join(kinds, ",") != strings.Join(want, ",") {
			t.Fatalf("events = %v, want %v", kinds, want)
		}
		if conn.sent[1].Step != pipeline.StepTranscribing {
			t.Errorf("first step = %q", conn.sent[1].Step)
		}
		if string(proc.content) != "chunk1chunk2" {
			t.Errorf("processor saw %q", proc.content)
		}
		if filepath.Ext(proc.job.FilePath) != ".webm" || proc.job.SourceType != types.SourceStream {
			t.Errorf("job = %+v", proc.job)
		}
		if last := conn.sent[len(conn.sent)-1]; last.Results == nil || last.Results.SourceFile != "standup" {
			t.Errorf("result event = %+v", last)
		}
	})

	t.Run("oversize stream", func(t *testing.T) {
		files, _ := storage.NewTempStorage(t.TempDir())
		h := NewStreamHandler(&fakeProcessor{}, files, testLimits, quietLogger())
		conn := &fakeConn{in: []wsMessage{
			{websocket.BinaryMessage, make([]byte, 2048)},
			{websocket.TextMessage, []byte("END")},
		}}

		h.serve(context.Background(), conn)

		if len(conn.sent) != 1 || conn.sent[0].Code != CodeFileTooLarge {
			t.Errorf("events = %+v, want one %s error", conn.sent, CodeFileTooLarge)
		}
	})

	t.Run("missing key", func(t *testing.T) {
		h := NewStreamHandler(nil, nil, testLimits, quietLogger())
		conn := &fakeConn{}

		h.serve(context.Background(), conn)

		if len(conn.sent) != 1 || conn.sent[0].Code != CodeMissingAPIKey {
			t.Errorf("events = %+v, want one %s error", conn.sent, CodeMissingAPIKey)
		}
	})

	t.Run("no audio", func(t *testing.T) {
		files, _ := storage.NewTempStorage(t.TempDir())
		h := NewStreamHandler(&fakeProcessor{}, files, testLimits, quietLogger())
		conn := &fakeConn{in: []wsMessage{{websocket.TextMessage, []byte("END")}}}

		h.serve(context.Background(), conn)

		if len(conn.sent) != 1 || conn.sent[0].Code != CodeEmptyFile {
			t.Errorf("events = %+v, want one %s error", conn.sent, CodeEmptyFile)
		}
	})
}

// fakeGenerator writes placeholder audio
type fakeGenerator struct {
	calls int
}

func (g *fakeGenerator) Generate(ctx context.Context, s samples.Scenario, outPath string, multiVoice bool) error {
	g.calls++
	return os.WriteFile(outPath, []byte("generated"), 0644)
}

func TestSamplesHandler(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "safety_briefing.mp3"), []byte("ready"), 0644); err != nil {
		t.Fatal(err)
	}
	proc := &fakeProcessor{}
	gen := &fakeGenerator{}
	h := NewSamplesHandler(proc, gen, dir, quietLogger())

	app := newTestApp()
	app.Get("/api/samples", h.List)
	app.Get("/api/samples/:id/audio", h.Audio)
	app.Post("/api/samples/:id/process", h.Process)

	t.Run("list", func(t *testing.T) {
		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/api/samples", nil), -1)
		var body struct {
			Samples             []samples.Entry `json:"samples"`
			GenerationAvailable bool            `json:"generation_available"`
		}
		decode(t, resp, &body)
		if len(body.Samples) != 6 || !body.GenerationAvailable {
			t.Errorf("list = %d samples, generation %v", len(body.Samples), body.GenerationAvailable)
		}
	})

	t.Run("audio", func(t *testing.T) {
		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/api/samples/safety-briefing/audio", nil), -1)
		if resp.StatusCode != 200 {
			t.Fatalf("status = %d, want 200", resp.StatusCode)
		}
		data, _ := io.ReadAll(resp.Body)
		if string(data) != "ready" {
			t.Errorf("body = %q", data)
		}
		if ct := resp.Header.Get("Content-Type"); ct != "audio/mpeg" {
			t.Errorf("Content-Type = %q, want audio/mpeg", ct)
		}

		resp, _ = app.Test(httptest.NewRequest(http.MethodGet, "/api/samples/quality-control/audio", nil), -1)
		if resp.StatusCode != 404 {
			t.Errorf("ungenerated sample status = %d, want 404", resp.StatusCode)
		}
	})

	t.Run("process existing", func(t *testing.T) {
		resp, _ := app.Test(httptest.NewRequest(http.MethodPost, "/api/samples/safety-briefing/process", nil), -1)
		if resp.StatusCode != 200 {
			t.Fatalf("status = %d, want 200", resp.StatusCode)
		}
		if proc.job.RemoveAfter || proc.job.SourceType != types.SourceSample {
			t.Errorf("job = %+v", proc.job)
		}
		if _, err := os.Stat(filepath.Join(dir, "safety_briefing.mp3")); err != nil {
			t.Error("sample file should be kept")
		}
		if gen.calls != 0 {
			t.Errorf("generator called %d times for an existing file", gen.calls)
		}
	})

	t.Run("process generates missing audio", func(t *testing.T) {
		resp, _ := app.Test(httptest.NewRequest(http.MethodPost, "/api/samples/production-planning-crisis/process", nil), -1)
		if resp.StatusCode != 200 {
			t.Fatalf("status = %d, want 200", resp.StatusCode)
		}
		if gen.calls != 1 || string(proc.content) != "generated" {
			t.Errorf("generator calls = %d, processed %q", gen.calls, proc.content)
		}
	})

	t.Run("unknown sample", func(t *testing.T) {
		resp, _ := app.Test(httptest.NewRequest(http.MethodPost, "/api/samples/nope/process", nil), -1)
		if resp.StatusCode != 404 {
			t.Errorf("status = %d, want 404", resp.StatusCode)
		}
	})
}

// fakeDrive records uploads
type fakeDrive struct {
	filename string
	data     []byte
	err      error
}

func (d *fakeDrive) Upload(ctx context.Context, filename string, data []byte) (string, error) {
	d.filename, d.data = filename, data
	if d.err != nil {
		return "", d.err
	}
	return "https://drive.google.com/file/d/abc/view", nil
}

func exportBody(t *testing.T) *bytes.Reader {
	t.Helper()
	res := types.Results{
		SourceFile:  "meeting.mp3",
		Transcript:  &types.TranscriptionResult{Text: "Where are we on batch 237?", Language: "english"},
		Insights:    json.RawMessage(`{"topics":["quality"]}`),
		ProcessedAt: time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC),
	}
	data, err := json.Marshal(res)
	if err != nil {
		t.Fatal(err)
	}
	return bytes.NewReader(data)
}

func TestExportHandler(t *testing.T) {
	fixed := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	t.Run("download", func(t *testing.T) {
		h := NewExportHandler(nil, quietLogger())
		h.now = func() time.Time { return fixed }
		app := newTestApp()
		app.Post("/api/export", h.Download)

		resp, _ := app.Test(httptest.NewRequest(http.MethodPost, "/api/export", exportBody(t)), -1)
		if resp.StatusCode != 200 {
			t.Fatalf("status = %d, want 200", resp.StatusCode)
		}
		want := `attachment; filename="conversation_analysis_20240301_100000.json"`
		if got := resp.Header.Get("Content-Disposition"); got != want {
			t.Errorf("Content-Disposition = %q, want %q", got, want)
		}

		var doc map[string]interface{}
		decode(t, resp, &doc)
		if doc["original_transcript"] != "Where are we on batch 237?" {
			t.Errorf("original_transcript = %v", doc["original_transcript"])
		}
		if _, ok := doc["insights"].(map[string]interface{})["topics"]; !ok {
			t.Error("export is missing the hosted insights")
		}
	})

	t.Run("download rejects empty results", func(t *testing.T) {
		app := newTestApp()
		app.Post("/api/export", NewExportHandler(nil, quietLogger()).Download)

		resp, _ := app.Test(httptest.NewRequest(http.MethodPost, "/api/export", strings.NewReader(`{}`)), -1)
		if resp.StatusCode != 400 {
			t.Errorf("status = %d, want 400", resp.StatusCode)
		}
	})

	t.Run("drive disabled", func(t *testing.T) {
		app := newTestApp()
		app.Post("/api/export/drive", NewExportHandler(nil, quietLogger()).Drive)

		resp, _ := app.Test(httptest.NewRequest(http.MethodPost, "/api/export/drive", exportBody(t)), -1)
		if resp.StatusCode != 503 {
			t.Errorf("status = %d, want 503", resp.StatusCode)
		}
	})

	t.Run("drive upload", func(t *testing.T) {
		drive := &fakeDrive{}
		h := NewExportHandler(drive, quietLogger())
		h.now = func() time.Time { return fixed }
		app := newTestApp()
		app.Post("/api/export/drive", h.Drive)

		resp, _ := app.Test(httptest.NewRequest(http.MethodPost, "/api/export/drive", exportBody(t)), -1)
		if resp.StatusCode != 200 {
			t.Fatalf("status = %d, want 200", resp.StatusCode)
		}
		var body map[string]string
		decode(t, resp, &body)
		if body["url"] == "" || drive.filename != "conversation_analysis_20240301_100000.json" {
			t.Errorf("body = %v, uploaded %q", body, drive.filename)
		}
		if !json.Valid(drive.data) {
			t.Error("uploaded export is not valid JSON")
		}
	})

	t.Run("drive failure", func(t *testing.T) {
		app := newTestApp()
		app.Post("/api/export/drive", NewExportHandler(&fakeDrive{err: errors.New("quota exceeded")}, quietLogger()).Drive)

		resp, _ := app.Test(httptest.NewRequest(http.MethodPost, "/api/export/drive", exportBody(t)), -1)
		if resp.StatusCode != 502 {
			t.Errorf("status = %d, want 502", resp.StatusCode)
		}
	})
}

func TestDriveLinkHandler(t *testing.T) {
	drive := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("id") {
		case "publicfile":
			w.Write([]byte("drive-audio"))
		case "hugefile":
			w.Write(make([]byte, 4096))
		default:
			http.Error(w, "not found", http.StatusNotFound)
		}
	}))
	defer drive.Close()

	tests := []struct {
		name       string
		body       string
		wantStatus int
	}{
		{"public file", `{"url":"https://drive.google.com/file/d/publicfile/view","name":"call.mp3"}`, 200},
		{"private file", `{"url":"https://drive.google.com/open?id=privatefile"}`, 400},
		{"too large", `{"url":"https://drive.google.com/file/d/hugefile/view"}`, 413},
		{"bad url", `{"url":"https://example.com/audio.mp3"}`, 400},
		{"missing url", `{"name":"call.mp3"}`, 400},
		{"bad format", `{"url":"https://drive.google.com/file/d/publicfile/view","name":"call.txt"}`, 400},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			files, _ := storage.NewTempStorage(t.TempDir())
			proc := &fakeProcessor{}
			h := NewDriveLinkHandler(proc, files, testLimits, quietLogger())
			h.downloadURL = drive.URL + "/uc?export=download&id=%s"
			app := newTestApp()
			app.Post("/api/process/drive-link", h.Handle)

			req := httptest.NewRequest(http.MethodPost, "/api/process/drive-link", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			resp, err := app.Test(req, -1)
			if err != nil {
				t.Fatal(err)
			}
			if resp.StatusCode != tt.wantStatus {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}
			if tt.wantStatus == 200 && string(proc.content) != "drive-audio" {
				t.Errorf("processor saw %q", proc.content)
			}
			if entries, _ := os.ReadDir(files.Dir()); len(entries) != 0 {
				t.Errorf("temp dir not empty: %d entries", len(entries))
			}
		})
	}
}

func TestDriveLinkDiscardLogsFailure(t *testing.T) {
	files, _ := storage.NewTempStorage(t.TempDir())
	log, hook := test.NewNullLogger()
	h := NewDriveLinkHandler(&fakeProcessor{}, files, testLimits, log)

	// a non-empty directory cannot be removed
	stuck := filepath.Join(files.Dir(), "stuck")
	if err := os.MkdirAll(filepath.Join(stuck, "inner"), 0755); err != nil {
		t.Fatal(err)
	}

	h.discard(stuck)

	last := hook.LastEntry()
	if last == nil || last.Level != logrus.WarnLevel {
		t.Fatalf("last log entry = %+v, want a warning", last)
	}
	if last.Data["path"] != stuck {
		t.Errorf("path field = %v, want %s", last.Data["path"], stuck)
	}

	hook.Reset()
	h.discard(filepath.Join(files.Dir(), "already-gone.mp3"))
	if len(hook.AllEntries()) != 0 {
		t.Errorf("missing file logged %d entries, want none", len(hook.AllEntries()))
	}
}

func TestExtractGDriveFileID(t *testing.T) {
	tests := map[string]string{
		"https://drive.google.com/file/d/1AbC_d-E/view?usp=sharing": "1AbC_d-E",
		"https://drive.google.com/open?id=XyZ123":                   "XyZ123",
		"1234567890abcdefghijklmnopqrstu":                           "1234567890abcdefghijklmnopqrstu",
		"not a link":                                                "",
	}
	for in, want := range tests {
		if got := extractGDriveFileID(in); got != want {
			t.Errorf("extractGDriveFileID(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestStatusHandler(t *testing.T) {
	buf := logging.NewLogBuffer()
	buf.Write([]byte("server started\n"))
	h := NewStatusHandler(StatusInfo{MaxFileSizeMB: 25, AllowedFormats: []string{"mp3"}}, buf)

	app := newTestApp()
	app.Get("/api/status", h.Status)
	app.Get("/health", h.Health)
	app.Get("/logs", h.Logs)

	resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/api/status", nil), -1)
	var info StatusInfo
	decode(t, resp, &info)
	if info.APIKeyConfigured || info.SetupInstructions == "" {
		t.Errorf("status = %+v, want setup instructions", info)
	}

	resp, _ = app.Test(httptest.NewRequest(http.MethodGet, "/health", nil), -1)
	if resp.StatusCode != 200 {
		t.Errorf("health status = %d", resp.StatusCode)
	}

	resp, _ = app.Test(httptest.NewRequest(http.MethodGet, "/logs", nil), -1)
	var logs struct {
		Logs []string `json:"logs"`
	}
	decode(t, resp, &logs)
	if len(logs.Logs) != 1 {
		t.Errorf("logs = %v, want one line", logs.Logs)
	}
}
