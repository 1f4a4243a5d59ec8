package note

import (
	"fmt"
	"strconv"
	"time"

	domnote "github.com/kailas-cloud/studybot/internal/domain/note"
)

// noteToHash converts a domain Note to a map for HSET.
func noteToHash(n domnote.Note) map[string]string {
	f := n.File()
	return map[string]string{
		"id":           n.ID(),
		"title":        n.Title(),
		"subject":      n.Subject(),
		"description":  n.Description(),
		"file_key":     f.Key,
		"file_url":     f.URL,
		"file_name":    f.Name,
		"file_type":    f.Type,
		"file_size":    strconv.FormatInt(f.Size, 10),
		"content_text": n.ContentText(),
		"uploaded_by":  n.UploadedBy(),
		"created_at":   strconv.FormatInt(n.CreatedAt().UnixMilli(), 10),
		"updated_at":   strconv.FormatInt(n.UpdatedAt().UnixMilli(), 10),
	}
}

// noteFromHash hydrates a domain Note from an HGETALL result map.
func noteFromHash(m map[string]string) (domnote.Note, error) {
	size, err := strconv.ParseInt(m["file_size"], 10, 64)
	if err != nil {
		return domnote.Note{}, fmt.Errorf("invalid file_size: %w", err)
	}
	createdAt, err := parseMillis(m["created_at"])
	if err != nil {
		return domnote.Note{}, fmt.Errorf("invalid created_at: %w", err)
	}
	updatedAt, err := parseMillis(m["updated_at"])
	if err != nil {
		return domnote.Note{}, fmt.Errorf("invalid updated_at: %w", err)
	}

	meta := domnote.Meta{Title: m["title"], Subject: m["subject"], Description: m["description"]}
	file := domnote.File{
		Key:  m["file_key"],
		URL:  m["file_url"],
		Name: m["file_name"],
		Type: m["file_type"],
		Size: size,
	}
	return domnote.Reconstruct(m["id"], meta, file, m["content_text"], m["uploaded_by"], createdAt, updatedAt), nil
}

func parseMillis(s string) (time.Time, error) {
	ms, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.UnixMilli(ms).UTC(), nil
}
