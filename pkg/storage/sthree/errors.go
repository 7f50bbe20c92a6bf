// Copyright © 2018 One Concern

package sthree

import (
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/oneconcern/eris/pkg/errors"
	"github.com/oneconcern/eris/pkg/storage/status"
)

var errEmptyBucket = status.ErrInvalidResource.WrapMessage("s3 bucket name is required")

func filterErrNotFound(err error) error {
	if errors.Is(err, status.ErrNotFound) {
		return nil
	}
	return err
}

// apiErrors maps S3 API responses to status sentinels.
//
// See https://docs.aws.amazon.com/AmazonS3/latest/API/ErrorResponses.html#ErrorCodeList
func apiErrors(err awserr.RequestFailure) error {
	switch err.StatusCode() {
	case 400:
		if err.Code() == "InvalidBucketName" {
			return status.ErrInvalidResource.Wrap(err)
		}
		return status.ErrStorageAPI.Wrap(err)
	case 401, 403:
		return status.ErrForbidden.Wrap(err)
	case 404:
		// NotFound is returned by minio and by HEAD requests
		return status.ErrNotFound.Wrap(err)
	default:
		return status.ErrStorageAPI.Wrap(err)
	}
}

func toSentinelErrors(err error) error {
	if err == nil {
		return nil
	}
	if awsErr, isAWS := err.(awserr.RequestFailure); isAWS {
		return apiErrors(awsErr)
	}
	if awsErr, isAWS := err.(awserr.Error); isAWS {
		switch awsErr.Code() {
		case "NoSuchKey", "NoSuchBucket", "NotFound":
			return status.ErrNotFound.Wrap(err)
		}
	}
	return err
}
