// Copyright © 2018 One Concern

package azure

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/oneconcern/eris/internal/rand"
	"github.com/oneconcern/eris/pkg/errors"
	"github.com/oneconcern/eris/pkg/storage"
	"github.com/oneconcern/eris/pkg/storage/status"
	"github.com/oneconcern/eris/pkg/storage/storetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// connectionEnv holds a connection string to a storage account or an azurite emulator
const connectionEnv = "ERIS_TEST_AZURE_CONNECTION_STRING"

func responseError(code string, statusCode int) error {
	return &azcore.ResponseError{
		ErrorCode:  code,
		StatusCode: statusCode,
		RawResponse: &http.Response{
			StatusCode: statusCode,
			Request:    httptest.NewRequest(http.MethodGet, "http://127.0.0.1:10000/devstoreaccount1/blocks/key", nil),
		},
	}
}

func TestSentinelErrors(t *testing.T) {
	assert.NoError(t, toSentinelErrors(nil))

	for _, toPin := range []struct {
		code     string
		status   int
		expected error
	}{
		{code: "BlobNotFound", status: http.StatusNotFound, expected: status.ErrNotFound},
		{code: "ContainerNotFound", status: http.StatusNotFound, expected: status.ErrNotFound},
		{code: "", status: http.StatusNotFound, expected: status.ErrNotFound},
		{code: "InvalidResourceName", status: http.StatusBadRequest, expected: status.ErrInvalidResource},
		{code: "AuthorizationFailure", status: http.StatusForbidden, expected: status.ErrForbidden},
		{code: "BlobAlreadyExists", status: http.StatusConflict, expected: status.ErrExists},
		{code: "InternalError", status: http.StatusInternalServerError, expected: status.ErrStorageAPI},
	} {
		fixture := toPin
		t.Run(fixture.code, func(t *testing.T) {
			err := toSentinelErrors(responseError(fixture.code, fixture.status))
			assert.True(t, errors.Is(err, fixture.expected))
		})
	}
}

func TestNewRequiresContainer(t *testing.T) {
	_, err := New(context.Background(), "", "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, status.ErrInvalidResource))
}

func TestAzureStore(t *testing.T) {
	connection := os.Getenv(connectionEnv)
	if connection == "" || testing.Short() {
		t.Skipf("azure tests require %s to point to a storage account or azurite", connectionEnv)
	}

	storetest.TestStoreCompliance(t, func(t testing.TB) storage.Store {
		ctx := context.Background()
		container := "eristest-" + strings.ToLower(rand.LetterString(12))

		s, err := New(ctx, connection, container, CreateContainer(true), Prefix("blocks/"), Logger(zaptest.NewLogger(t)))
		require.NoError(t, err)

		t.Cleanup(func() {
			_, _ = s.(*azureStore).client.DeleteContainer(ctx, container, nil)
		})
		return s
	})
}
