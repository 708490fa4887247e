// ABOUTME: Filesystem factory creating afero filesystems from URIs
// ABOUTME: Supports local paths, mem:// for tests, and s3:// buckets

package filesystem

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	s3fs "github.com/fclairamb/afero-s3"
	"github.com/spf13/afero"
)

// Config holds credentials for remote filesystems
type Config struct {
	AWSAccessKeyID     string
	AWSSecretAccessKey string
	AWSSessionToken    string
	AWSRegion          string
}

// Location is a parsed storage URI
type Location struct {
	Scheme   string // file, mem, s3
	Bucket   string
	Path     string
	Original string
}

// ParsePath parses a path or URI into a storage location
func ParsePath(path string) (*Location, error) {
	location := &Location{Original: path}

	if !strings.Contains(path, "://") {
		location.Scheme = "file"
		location.Path = path
		return location, nil
	}

	u, err := url.Parse(path)
	if err != nil {
		return nil, fmt.Errorf("invalid storage URI: %w", err)
	}

	location.Scheme = u.Scheme
	location.Path = u.Path

	if location.Scheme == "s3" {
		location.Bucket = u.Hostname()
		location.Path = strings.TrimPrefix(u.Path, "/")
	}
	return location, nil
}

// Open creates the afero filesystem for a storage URI and returns it
// with the path inside that filesystem.
func Open(path string, config *Config) (afero.Fs, string, error) {
	location, err := ParsePath(path)
	if err != nil {
		return nil, "", err
	}
	if config == nil {
		config = &Config{}
	}

	switch location.Scheme {
	case "file", "":
		return afero.NewOsFs(), location.Path, nil

	case "mem":
		return afero.NewMemMapFs(), location.Path, nil

	case "s3":
		fs, err := openS3(location, config)
		if err != nil {
			return nil, "", err
		}
		return fs, location.Path, nil

	default:
		return nil, "", fmt.Errorf("unsupported storage scheme: %s", location.Scheme)
	}
}

func openS3(location *Location, config *Config) (afero.Fs, error) {
	if location.Bucket == "" {
		return nil, fmt.Errorf("s3 URI must specify a bucket: s3://bucket/path")
	}

	awsConfig := &aws.Config{}

	region := config.AWSRegion
	if region == "" {
		region = os.Getenv("AWS_REGION")
	}
	if region == "" {
		region = os.Getenv("AWS_DEFAULT_REGION")
	}
	if region == "" {
		region = "us-east-1"
	}
	awsConfig.Region = aws.String(region)

	if config.AWSAccessKeyID != "" && config.AWSSecretAccessKey != "" {
		awsConfig.Credentials = credentials.NewStaticCredentials(
			config.AWSAccessKeyID,
			config.AWSSecretAccessKey,
			config.AWSSessionToken,
		)
	}

	sess, err := session.NewSession(awsConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}
	return s3fs.NewFs(location.Bucket, sess), nil
}
