package storage

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	storagego "github.com/supabase-community/storage-go"
)

// SupabaseStore writes objects to a public Supabase Storage bucket.
type SupabaseStore struct {
	client  *storagego.Client
	bucket  string
	baseURL string
}

func NewSupabaseStore(supabaseURL, serviceKey, bucket string) *SupabaseStore {
	baseURL := strings.TrimRight(strings.TrimSpace(supabaseURL), "/")
	return &SupabaseStore{
		client:  storagego.NewClient(baseURL+"/storage/v1", serviceKey, nil),
		bucket:  bucket,
		baseURL: baseURL,
	}
}

func (s *SupabaseStore) Put(ctx context.Context, key string, data []byte, mime string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	upsert := true
	_, err := s.client.UploadFile(s.bucket, key, bytes.NewReader(data), storagego.FileOptions{
		ContentType: &mime,
		Upsert:      &upsert,
	})
	if err != nil {
		return fmt.Errorf("upload to supabase: %w", err)
	}
	return nil
}

func (s *SupabaseStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := s.client.RemoveFile(s.bucket, []string{key}); err != nil {
		return fmt.Errorf("delete from supabase: %w", err)
	}
	return nil
}

func (s *SupabaseStore) URL(key string) string {
	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s", s.baseURL, s.bucket, strings.TrimLeft(key, "/"))
}

var _ Backend = (*SupabaseStore)(nil)
