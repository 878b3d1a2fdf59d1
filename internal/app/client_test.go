package app

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
)

func TestUploadDocumentSendsMultipartForm(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.pdf")
	if err := os.WriteFile(path, []byte("pdf bytes"), 0o644); err != nil {
		t.Fatal(err)
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/documents/ingest" {
			t.Errorf("%s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("authorization = %q", got)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("parse multipart: %v", err)
		}
		for field, want := range map[string]string{
			"teacher_id":   "teacher-1",
			"chat_id":      "chat-1",
			"classroom_id": "class-1",
			"subject_id":   "subject-1",
		} {
			if got := r.FormValue(field); got != want {
				t.Errorf("%s = %q, want %q", field, got, want)
			}
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("form file: %v", err)
		}
		defer file.Close()
		if header.Filename != "notes.pdf" {
			t.Errorf("filename = %q", header.Filename)
		}
		content, _ := io.ReadAll(file)
		if string(content) != "pdf bytes" {
			t.Errorf("file content = %q", content)
		}
		json.NewEncoder(w).Encode(map[string]string{"job_id": "job-42"})
	}))
	defer srv.Close()

	client := NewPlatformClient(srv.URL, "tok", "teacher-1", nil, NewLogger(io.Discard))
	jobID, err := client.UploadDocument(context.Background(), UploadRequest{
		Path:        path,
		ChatID:      "chat-1",
		ClassroomID: "class-1",
		SubjectID:   "subject-1",
	})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if jobID != "job-42" {
		t.Fatalf("job id = %q", jobID)
	}
}

func TestUploadRejectsDisallowedTypeBeforeNetwork(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Error("no request may reach the server")
	}))
	defer srv.Close()

	client := NewPlatformClient(srv.URL, "", "teacher-1", nil, NewLogger(io.Discard))
	_, err := client.UploadDocument(context.Background(), UploadRequest{Path: "/tmp/malware.exe"})
	if !errors.Is(err, ErrUnsupportedFileType) {
		t.Fatalf("err = %v, want ErrUnsupportedFileType", err)
	}
}

func TestUploadAllowListIsCaseInsensitive(t *testing.T) {
	client := NewPlatformClient("http://unused", "", "", []string{".pdf", ".DOCX"}, NewLogger(io.Discard))
	cases := map[string]bool{
		"Report.PDF":  true,
		"notes.docx":  true,
		"slides.pptx": false,
		"noext":       false,
	}
	for path, want := range cases {
		if got := client.uploadAllowed(path); got != want {
			t.Errorf("uploadAllowed(%q) = %v, want %v", path, got, want)
		}
	}
}

func TestDocumentsListingIsCached(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if got := r.URL.Query().Get("teacher_id"); got != "teacher-1" {
			t.Errorf("teacher_id = %q", got)
		}
		json.NewEncoder(w).Encode(DocumentSet{
			Inputs:  []Document{{Name: "notes.pdf", Size: 9}},
			Outputs: []Document{{Name: "worksheet.pdf", Size: 4}},
		})
	}))
	defer srv.Close()

	client := NewPlatformClient(srv.URL, "", "teacher-1", nil, NewLogger(io.Discard))
	scope := DocumentScope{ClassroomID: "class-1", SubjectID: "subject-1", ChatID: "chat-1"}

	first, err := client.Documents(context.Background(), scope, false)
	if err != nil {
		t.Fatalf("documents: %v", err)
	}
	if len(first.Inputs) != 1 || first.Inputs[0].Name != "notes.pdf" {
		t.Fatalf("inputs = %+v", first.Inputs)
	}

	if _, err := client.Documents(context.Background(), scope, false); err != nil {
		t.Fatalf("cached documents: %v", err)
	}
	if hits.Load() != 1 {
		t.Fatalf("server hit %d times, cache not used", hits.Load())
	}

	// force bypasses the cache, as does invalidation.
	if _, err := client.Documents(context.Background(), scope, true); err != nil {
		t.Fatalf("forced documents: %v", err)
	}
	client.InvalidateDocuments(scope)
	if _, err := client.Documents(context.Background(), scope, false); err != nil {
		t.Fatalf("post-invalidation documents: %v", err)
	}
	if hits.Load() != 3 {
		t.Fatalf("server hit %d times, want 3", hits.Load())
	}
}

func TestChatHistoryDecodesRecords(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chats/chat-1/messages" {
			t.Errorf("path = %q", r.URL.Path)
		}
		io.WriteString(w, `[
			{"role":"user","content":"hi"},
			{"role":"agent","content":"hello","flow_type":"doubt_clearance"}
		]`)
	}))
	defer srv.Close()

	client := NewPlatformClient(srv.URL, "", "teacher-1", nil, NewLogger(io.Discard))
	records, err := client.ChatHistory(context.Background(), "chat-1")
	if err != nil {
		t.Fatalf("chat history: %v", err)
	}
	if len(records) != 2 || records[1].FlowType != FlowDoubtClearance {
		t.Fatalf("records = %+v", records)
	}
}

func TestPlatformErrorsSurfaceStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer srv.Close()

	client := NewPlatformClient(srv.URL, "", "teacher-1", nil, NewLogger(io.Discard))
	if _, err := client.ChatHistory(context.Background(), "chat-1"); err == nil {
		t.Fatal("expected error on 403")
	}
}

func TestJobStatusRequestsJobEndpoint(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/documents/ingest/job-42" {
			t.Errorf("path = %q", r.URL.Path)
		}
		json.NewEncoder(w).Encode(JobStatusResponse{Status: "processing", Message: "chunking"})
	}))
	defer srv.Close()

	client := NewPlatformClient(srv.URL, "", "teacher-1", nil, NewLogger(io.Discard))
	status, err := client.JobStatus(context.Background(), "job-42")
	if err != nil {
		t.Fatalf("job status: %v", err)
	}
	if status.Status != "processing" || status.Message != "chunking" {
		t.Fatalf("status = %+v", status)
	}
}
