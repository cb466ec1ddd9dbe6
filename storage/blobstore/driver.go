// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package blobstore provides an Azure Blob Storage driver for the object store.
package blobstore

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
	"github.com/poiesic/petclinic/storage"
	"github.com/poiesic/petclinic/storage/object"
)

// Driver implements object.Driver for Azure Blob Storage. A connection
// string is preferred; otherwise the account name and key build a shared key
// credential against the account's public blob endpoint.
type Driver struct{}

var _ object.Driver = (*Driver)(nil)

// NewDriver creates an Azure Blob Storage object driver.
func NewDriver() *Driver {
	return &Driver{}
}

// Name returns "azblob".
func (d *Driver) Name() string {
	return "azblob"
}

// Missing reports absent credentials. With no connection string, both the
// account name and key are needed.
func (d *Driver) Missing(cfg object.Config) []string {
	if cfg.HasCredentials() {
		return nil
	}
	var missing []string
	if cfg.AccountName == "" {
		missing = append(missing, "account name")
	}
	if cfg.AccountKey == "" {
		missing = append(missing, "account key")
	}
	return missing
}

// Connect builds a service client. No request is sent until first use.
func (d *Driver) Connect(ctx context.Context, cfg object.Config) (object.Service, error) {
	client, err := newClient(cfg)
	if err != nil {
		return nil, &storage.ConfigurationError{Component: "azblob driver", Err: err}
	}
	return &service{client: client}, nil
}

func newClient(cfg object.Config) (*azblob.Client, error) {
	if cfg.ConnectionString != "" {
		return azblob.NewClientFromConnectionString(cfg.ConnectionString, nil)
	}
	cred, err := azblob.NewSharedKeyCredential(cfg.AccountName, cfg.AccountKey)
	if err != nil {
		return nil, err
	}
	return azblob.NewClientWithSharedKeyCredential(serviceURL(cfg.AccountName), cred, nil)
}

// serviceURL returns the public blob endpoint of an account.
func serviceURL(accountName string) string {
	return fmt.Sprintf("https://%s.blob.core.windows.net/", accountName)
}

// classify maps service error codes onto storage sentinels.
func classify(err error) error {
	switch {
	case err == nil:
		return nil
	case bloberror.HasCode(err, bloberror.BlobNotFound):
		return fmt.Errorf("%w: %w", storage.ErrNotFound, err)
	case bloberror.HasCode(err, bloberror.ContainerAlreadyExists):
		return storage.ErrContainerExists
	}
	return err
}

type service struct {
	client *azblob.Client
}

func (s *service) CreateContainer(ctx context.Context, name string) error {
	_, err := s.client.CreateContainer(ctx, name, nil)
	return classify(err)
}

func (s *service) Container(name string) object.Container {
	return &container{client: s.client, name: name}
}

// Close is a no-op; the client holds no resources beyond its HTTP pipeline.
func (s *service) Close() error {
	return nil
}

type container struct {
	client *azblob.Client
	name   string
}

func (c *container) Upload(ctx context.Context, name string, body []byte, metadata map[string]string) error {
	_, err := c.client.UploadBuffer(ctx, c.name, name, body, &azblob.UploadBufferOptions{
		Metadata: toServiceMetadata(metadata),
	})
	return classify(err)
}

func (c *container) Download(ctx context.Context, name string) ([]byte, error) {
	resp, err := c.client.DownloadStream(ctx, c.name, name, nil)
	if err != nil {
		return nil, classify(err)
	}
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

func (c *container) Delete(ctx context.Context, name string) error {
	_, err := c.client.DeleteBlob(ctx, c.name, name, nil)
	return classify(err)
}

func (c *container) List(ctx context.Context, includeMetadata bool) ([]object.ObjectInfo, error) {
	pager := c.client.NewListBlobsFlatPager(c.name, &azblob.ListBlobsFlatOptions{
		Include: azblob.ListBlobsInclude{Metadata: includeMetadata},
	})

	var objects []object.ObjectInfo
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, classify(err)
		}
		if page.Segment == nil {
			continue
		}
		for _, item := range page.Segment.BlobItems {
			if item == nil || item.Name == nil {
				continue
			}
			info := object.ObjectInfo{Name: *item.Name}
			if item.Properties != nil && item.Properties.ETag != nil {
				info.ETag = string(*item.Properties.ETag)
			}
			if includeMetadata {
				info.Metadata = fromServiceMetadata(item.Metadata)
			}
			objects = append(objects, info)
		}
	}
	return objects, nil
}

func toServiceMetadata(metadata map[string]string) map[string]*string {
	if len(metadata) == 0 {
		return nil
	}
	out := make(map[string]*string, len(metadata))
	for k, v := range metadata {
		out[k] = to.Ptr(v)
	}
	return out
}

// fromServiceMetadata flattens service metadata. Metadata keys are
// case-insensitive on the service, so they are lowercased.
func fromServiceMetadata(metadata map[string]*string) map[string]string {
	if metadata == nil {
		return nil
	}
	out := make(map[string]string, len(metadata))
	for k, v := range metadata {
		if v != nil {
			out[strings.ToLower(k)] = *v
		}
	}
	return out
}
