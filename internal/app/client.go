package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

const documentCacheTTL = 30 * time.Second

// ErrUnsupportedFileType is returned before any network call when an upload
// does not match the allow-list.
var ErrUnsupportedFileType = errors.New("file type not supported for ingestion")

// PlatformClient talks to the platform REST API: chat history, document
// listings and document ingestion. The bearer token is carried explicitly on
// the client, never read from module-level state.
type PlatformClient struct {
	BaseURL      string
	Token        string
	TeacherID    string
	AllowedTypes []string
	HTTP         *http.Client
	Logger       *Logger

	docCache *gocache.Cache
}

func NewPlatformClient(baseURL, token, teacherID string, allowedTypes []string, logger *Logger) *PlatformClient {
	if len(allowedTypes) == 0 {
		allowedTypes = DefaultAllowedUploadTypes()
	}
	return &PlatformClient{
		BaseURL:      strings.TrimRight(baseURL, "/"),
		Token:        token,
		TeacherID:    teacherID,
		AllowedTypes: allowedTypes,
		HTTP:         &http.Client{Timeout: 30 * time.Second},
		Logger:       logger,
		docCache:     gocache.New(documentCacheTTL, time.Minute),
	}
}

// ChatHistory fetches the persisted message log for a chat, oldest first.
func (c *PlatformClient) ChatHistory(ctx context.Context, chatID string) ([]HistoryRecord, error) {
	var records []HistoryRecord
	err := c.doJSON(ctx, http.MethodGet, "/chats/"+url.PathEscape(chatID)+"/messages", nil, nil, &records)
	if err != nil {
		return nil, err
	}
	return records, nil
}

// Document is one stored file visible to the chat.
type Document struct {
	Name         string    `json:"name"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"last_modified"`
}

// DocumentSet separates uploaded source material from agent-generated output.
type DocumentSet struct {
	Inputs  []Document `json:"inputs"`
	Outputs []Document `json:"outputs"`
}

// DocumentScope identifies whose documents to list. The teacher ID comes
// from the client itself.
type DocumentScope struct {
	ClassroomID string
	SubjectID   string
	ChatID      string
}

func (s DocumentScope) cacheKey() string {
	return s.ClassroomID + "/" + s.SubjectID + "/" + s.ChatID
}

// Documents lists the input and output documents for a scope. Results are
// cached briefly so panel refreshes don't hammer the endpoint; pass force to
// bypass the cache after an ingestion completes.
func (c *PlatformClient) Documents(ctx context.Context, scope DocumentScope, force bool) (DocumentSet, error) {
	if !force {
		if cached, ok := c.docCache.Get(scope.cacheKey()); ok {
			return cached.(DocumentSet), nil
		}
	}

	query := url.Values{}
	query.Set("teacher_id", c.TeacherID)
	query.Set("classroom_id", scope.ClassroomID)
	query.Set("subject_id", scope.SubjectID)
	query.Set("chat_id", scope.ChatID)

	var set DocumentSet
	if err := c.doJSON(ctx, http.MethodGet, "/documents", query, nil, &set); err != nil {
		return DocumentSet{}, err
	}
	c.docCache.Set(scope.cacheKey(), set, gocache.DefaultExpiration)
	return set, nil
}

// InvalidateDocuments drops the cached listing for a scope.
func (c *PlatformClient) InvalidateDocuments(scope DocumentScope) {
	c.docCache.Delete(scope.cacheKey())
}

// UploadRequest carries one file into ingestion, bound to its chat context.
type UploadRequest struct {
	Path        string
	ChatID      string
	ClassroomID string
	SubjectID   string
}

// UploadDocument validates the file against the allow-list, posts it as
// multipart form data and returns the ingestion job ID the backend assigned.
func (c *PlatformClient) UploadDocument(ctx context.Context, req UploadRequest) (string, error) {
	if !c.uploadAllowed(req.Path) {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFileType, filepath.Ext(req.Path))
	}

	file, err := os.Open(req.Path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	part, err := form.CreateFormFile("file", filepath.Base(req.Path))
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(part, file); err != nil {
		return "", err
	}
	fields := map[string]string{
		"teacher_id":   c.TeacherID,
		"chat_id":      req.ChatID,
		"classroom_id": req.ClassroomID,
		"subject_id":   req.SubjectID,
	}
	for k, v := range fields {
		if err := form.WriteField(k, v); err != nil {
			return "", err
		}
	}
	if err := form.Close(); err != nil {
		return "", err
	}

	var accepted struct {
		JobID string `json:"job_id"`
	}
	if err := c.doBody(ctx, http.MethodPost, "/documents/ingest", nil, &body, form.FormDataContentType(), &accepted); err != nil {
		return "", err
	}
	if accepted.JobID == "" {
		return "", errors.New("ingestion accepted without a job id")
	}
	return accepted.JobID, nil
}

// JobStatusResponse is the raw status vocabulary of the job-status endpoint.
// The tracker normalizes it to its four-state model.
type JobStatusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

func (c *PlatformClient) JobStatus(ctx context.Context, jobID string) (JobStatusResponse, error) {
	var status JobStatusResponse
	err := c.doJSON(ctx, http.MethodGet, "/documents/ingest/"+url.PathEscape(jobID), nil, nil, &status)
	return status, err
}

func (c *PlatformClient) uploadAllowed(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, allowed := range c.AllowedTypes {
		if ext == strings.ToLower(allowed) {
			return true
		}
	}
	return false
}

func (c *PlatformClient) doJSON(ctx context.Context, method, path string, query url.Values, payload any, out any) error {
	var body io.Reader
	contentType := ""
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
		contentType = "application/json"
	}
	return c.doBody(ctx, method, path, query, body, contentType, out)
}

func (c *PlatformClient) doBody(ctx context.Context, method, path string, query url.Values, body io.Reader, contentType string, out any) error {
	endpoint := c.BaseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.Logger.Error("platform request failed", map[string]interface{}{
			"method": method, "path": path, "status": resp.Status, "body": string(snippet),
		})
		return fmt.Errorf("platform %s %s: %s", method, path, resp.Status)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
