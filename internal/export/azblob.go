package export

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
	"github.com/rs/zerolog"
)

const (
	// Well-known Azurite development account
	azuriteAccountName = "devstoreaccount1"
	azuriteAccountKey  = "Eby8vdM02xNOcqFlqUwJPLlmEtlCDXJ1OUzFT50uSRZ6IFsuFq2UVErCz4I6tq/K1SZFPTOtr/KBHBeksoGMGw=="
)

// BlobClient uploads text blobs.
type BlobClient interface {
	UploadText(ctx context.Context, containerName, blobName, content string) error
	URL() string
}

// BlobService implements BlobClient with Azure Blob Storage.
type BlobService struct {
	client *azblob.Client
	log    zerolog.Logger
}

// NewBlobService connects to serviceURL. Plain http URLs are treated as a
// local Azurite emulator and use its shared key; anything else uses
// DefaultAzureCredential.
func NewBlobService(serviceURL string, log zerolog.Logger) (*BlobService, error) {
	if serviceURL == "" {
		return nil, fmt.Errorf("NewBlobService: blob service URL is required")
	}

	var client *azblob.Client
	if isLocal(serviceURL) {
		log.Info().Str("blob_url", serviceURL).Msg("Using Azurite shared key credentials")
		cred, err := azblob.NewSharedKeyCredential(azuriteAccountName, azuriteAccountKey)
		if err != nil {
			return nil, fmt.Errorf("NewBlobService: shared key credential: %w", err)
		}
		client, err = azblob.NewClientWithSharedKeyCredential(serviceURL, cred, nil)
		if err != nil {
			return nil, fmt.Errorf("NewBlobService: create client with shared key: %w", err)
		}
	} else {
		cred, err := newDefaultAzureCredential()
		if err != nil {
			return nil, fmt.Errorf("NewBlobService: default azure credential: %w", err)
		}
		client, err = azblob.NewClient(serviceURL, cred, nil)
		if err != nil {
			return nil, fmt.Errorf("NewBlobService: create client: %w", err)
		}
	}

	return &BlobService{client: client, log: log}, nil
}

func isLocal(serviceURL string) bool {
	return strings.HasPrefix(serviceURL, "http://")
}

func newDefaultAzureCredential() (azcore.TokenCredential, error) {
	return azidentity.NewDefaultAzureCredential(nil)
}

// URL returns the blob service endpoint.
func (s *BlobService) URL() string {
	return s.client.URL()
}

// UploadText implements BlobClient. The container is created when missing.
func (s *BlobService) UploadText(ctx context.Context, containerName, blobName, content string) error {
	_, err := s.client.CreateContainer(ctx, containerName, nil)
	if err != nil && !bloberror.HasCode(err, bloberror.ContainerAlreadyExists) {
		s.log.Warn().Err(err).Str("container", containerName).Msg("Failed to create container")
	}

	if _, err := s.client.UploadBuffer(ctx, containerName, blobName, []byte(content), nil); err != nil {
		return fmt.Errorf("UploadText: upload %s/%s: %w", containerName, blobName, err)
	}

	s.log.Debug().
		Str("container", containerName).
		Str("blob_name", blobName).
		Int("size_bytes", len(content)).
		Msg("Uploaded blob")
	return nil
}

// AzureBlobSink stores reports as <user>/<filename> in a container.
type AzureBlobSink struct {
	blobs     BlobClient
	container string
}

// NewAzureBlobSink creates a sink writing to container.
func NewAzureBlobSink(blobs BlobClient, container string) *AzureBlobSink {
	return &AzureBlobSink{blobs: blobs, container: container}
}

// Put implements Sink.
func (s *AzureBlobSink) Put(ctx context.Context, obj Object) (string, error) {
	name := path.Join(obj.UserID, obj.Filename)
	if err := s.blobs.UploadText(ctx, s.container, name, obj.Content); err != nil {
		return "", fmt.Errorf("Put: %w", err)
	}
	return strings.TrimRight(s.blobs.URL(), "/") + "/" + s.container + "/" + name, nil
}
