// Copyright © 2018 One Concern

package azure

import (
	"net/http"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
	"github.com/oneconcern/eris/pkg/errors"
	"github.com/oneconcern/eris/pkg/storage/status"
)

// toSentinelErrors returns sentinel errors defined by the status package
func toSentinelErrors(err error) error {
	if err == nil {
		return nil
	}
	if bloberror.HasCode(err, bloberror.BlobNotFound, bloberror.ContainerNotFound, bloberror.ResourceNotFound) {
		return status.ErrNotFound.Wrap(err)
	}
	if bloberror.HasCode(err, bloberror.InvalidResourceName) {
		return status.ErrInvalidResource.Wrap(err)
	}

	var respErr *azcore.ResponseError
	if !errors.As(err, &respErr) {
		return err
	}
	switch respErr.StatusCode {
	case http.StatusNotFound:
		// HEAD requests carry no error code in the body
		return status.ErrNotFound.Wrap(err)
	case http.StatusUnauthorized, http.StatusForbidden:
		return status.ErrForbidden.Wrap(err)
	case http.StatusConflict:
		return status.ErrExists.Wrap(err)
	default:
		return status.ErrStorageAPI.Wrap(err)
	}
}
