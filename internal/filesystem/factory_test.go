// ABOUTME: Tests for the filesystem factory
// ABOUTME: Covers URI parsing and scheme selection

package filesystem

import (
	"testing"
)

func TestParsePath_Local(t *testing.T) {
	location, err := ParsePath("./history")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if location.Scheme != "file" || location.Path != "./history" {
		t.Errorf("Unexpected location: %+v", location)
	}
}

func TestParsePath_S3(t *testing.T) {
	location, err := ParsePath("s3://my-bucket/jobs/history")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if location.Scheme != "s3" || location.Bucket != "my-bucket" || location.Path != "jobs/history" {
		t.Errorf("Unexpected location: %+v", location)
	}
}

func TestOpen_Mem(t *testing.T) {
	fs, path, err := Open("mem:///checkpoints", nil)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if fs == nil || path != "/checkpoints" {
		t.Errorf("Unexpected result: %v %q", fs, path)
	}
}

func TestOpen_UnsupportedScheme(t *testing.T) {
	if _, _, err := Open("ftp://host/path", nil); err == nil {
		t.Error("Expected error for unsupported scheme")
	}
}

func TestOpen_S3RequiresBucket(t *testing.T) {
	if _, _, err := Open("s3:///no-bucket", nil); err == nil {
		t.Error("Expected error for missing bucket")
	}
}
