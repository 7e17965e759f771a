package router

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/patric-chuzhbe/userapi/internal/db/memorystorage"
	"github.com/patric-chuzhbe/userapi/internal/db/storage"
	"github.com/patric-chuzhbe/userapi/internal/ipchecker"
	"github.com/patric-chuzhbe/userapi/internal/logger"
	"github.com/patric-chuzhbe/userapi/internal/metrics"
	"github.com/patric-chuzhbe/userapi/internal/mockstorage"
	"github.com/patric-chuzhbe/userapi/internal/service"
	"github.com/patric-chuzhbe/userapi/internal/user"
)

const trustedSubnet = "10.0.0.0/8"

type initOption func(*initOptions)

type initOptions struct {
	mockStorage storage.Storage
}

func withMockStorage(db storage.Storage) initOption {
	return func(options *initOptions) {
		options.mockStorage = db
	}
}

func setupTestRouter(t *testing.T, optionsProto ...initOption) (*httptest.Server, storage.Storage) {
	options := &initOptions{}
	for _, protoOption := range optionsProto {
		protoOption(options)
	}

	if t != nil {
		require.NoError(t, logger.Init("debug"))
	}

	db := options.mockStorage
	if db == nil {
		memoryDB, err := memorystorage.New()
		if err != nil {
			panic(err)
		}
		db = memoryDB
	}

	checker, err := ipchecker.New(trustedSubnet)
	if err != nil {
		panic(err)
	}

	server := httptest.NewServer(New(service.New(db), checker, metrics.New()))

	return server, db
}

func decodeUser(t *testing.T, body []byte) *user.User {
	t.Helper()
	var result user.User
	require.NoError(t, json.Unmarshal(body, &result))
	return &result
}

func TestUserLifecycle(t *testing.T) {
	server, _ := setupTestRouter(t)
	defer server.Close()

	client := resty.New().SetBaseURL(server.URL)

	resp, err := client.R().
		SetHeader("Content-Type", "application/json").
		SetBody(`{"name":"Ann","location":"NYC","title":"Eng"}`).
		Post("/user")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode(), resp.String())
	assert.Equal(t, "application/json", resp.Header().Get("Content-Type"))

	created := decodeUser(t, resp.Body())
	require.NotNil(t, created.ID)
	assert.Equal(t, "Ann", created.Name)
	assert.Equal(t, "NYC", created.Location)
	assert.Equal(t, "Eng", created.Title)

	resp, err = client.R().Get("/user/" + created.HexID())
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode())
	assert.Equal(t, created, decodeUser(t, resp.Body()))

	resp, err = client.R().
		SetBody(`{"name":"Ann","location":"SF","title":"Eng"}`).
		Put("/user/" + created.HexID())
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode())
	updated := decodeUser(t, resp.Body())
	assert.Equal(t, "SF", updated.Location)
	assert.Equal(t, *created.ID, *updated.ID)

	resp, err = client.R().Get("/user/" + created.HexID())
	require.NoError(t, err)
	assert.Equal(t, updated, decodeUser(t, resp.Body()))

	resp, err = client.R().Delete("/user/" + created.HexID())
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode())
	assert.JSONEq(t, `"user succesfully deleted!"`, resp.String())

	resp, err = client.R().Delete("/user/" + created.HexID())
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode())
	assert.JSONEq(t, `"User with specified ID not found!"`, resp.String())

	resp, err = client.R().Get("/user/" + created.HexID())
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode())
	assert.Equal(t, storage.ErrUserNotFound.Error(), strings.TrimSpace(resp.String()))
}

func TestCreateIgnoresClientSuppliedID(t *testing.T) {
	server, _ := setupTestRouter(t)
	defer server.Close()

	clientID := primitive.NewObjectID().Hex()
	resp, err := resty.New().R().
		SetBody(fmt.Sprintf(`{"id":%q,"name":"Ann","location":"NYC","title":"Eng"}`, clientID)).
		Post(server.URL + "/user")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode())

	created := decodeUser(t, resp.Body())
	require.NotNil(t, created.ID)
	assert.NotEqual(t, clientID, created.HexID())
}

func TestRequestErrors(t *testing.T) {
	db := &mockstorage.StorageMock{}
	server, _ := setupTestRouter(t, withMockStorage(db))
	defer server.Close()

	type tRequest struct {
		method string
		path   string
		body   string
	}
	type tExpectedResponse struct {
		code int
		body string
	}
	testCases := []struct {
		name             string
		request          tRequest
		expectedResponse tExpectedResponse
	}{
		{
			name:             "get with empty id",
			request:          tRequest{http.MethodGet, "/user/", ""},
			expectedResponse: tExpectedResponse{http.StatusBadRequest, MsgInvalidUserIDOnGet},
		},
		{
			name:             "update with empty id",
			request:          tRequest{http.MethodPut, "/user/", `{"name":"a"}`},
			expectedResponse: tExpectedResponse{http.StatusBadRequest, MsgInvalidUserIDOnUpdate},
		},
		{
			name:             "delete with empty id",
			request:          tRequest{http.MethodDelete, "/user/", ""},
			expectedResponse: tExpectedResponse{http.StatusBadRequest, MsgInvalidUserIDOnDelete},
		},
		{
			name:    "get with malformed id",
			request: tRequest{http.MethodGet, "/user/42", ""},
			expectedResponse: tExpectedResponse{
				http.StatusBadRequest,
				`invalid user ID "42": the provided hex string is not a valid ObjectID`,
			},
		},
		{
			name:    "update with malformed id",
			request: tRequest{http.MethodPut, "/user/42", `{"name":"a"}`},
			expectedResponse: tExpectedResponse{
				http.StatusBadRequest,
				`invalid user ID "42": the provided hex string is not a valid ObjectID`,
			},
		},
		{
			name:    "delete with malformed id",
			request: tRequest{http.MethodDelete, "/user/42", ""},
			expectedResponse: tExpectedResponse{
				http.StatusBadRequest,
				`invalid user ID "42": the provided hex string is not a valid ObjectID`,
			},
		},
		{
			name:             "create with broken json",
			request:          tRequest{http.MethodPost, "/user", `{"name":`},
			expectedResponse: tExpectedResponse{http.StatusBadRequest, "json deserialize error: unexpected EOF"},
		},
		{
			name:             "update with broken json",
			request:          tRequest{http.MethodPut, "/user/" + primitive.NewObjectID().Hex(), `[`},
			expectedResponse: tExpectedResponse{http.StatusBadRequest, "json deserialize error: unexpected EOF"},
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			req := resty.New().R()
			req.Method = testCase.request.method
			req.URL = server.URL + testCase.request.path
			if testCase.request.body != "" {
				req.SetBody(testCase.request.body)
			}

			resp, err := req.Send()
			require.NoError(t, err)

			assert.Equal(t, testCase.expectedResponse.code, resp.StatusCode())
			assert.Equal(t, testCase.expectedResponse.body, strings.TrimSpace(resp.String()))
		})
	}

	// None of the requests above is allowed to reach the storage.
	db.AssertExpectations(t)
	assert.Empty(t, db.Calls)
}

func TestStorageFailures(t *testing.T) {
	errBoom := errors.New("server selection error: context deadline exceeded")
	id := primitive.NewObjectID()

	db := &mockstorage.StorageMock{}
	db.On("CreateUser", mock.Anything, mock.Anything).Return(nil, errBoom)
	db.On("GetUserByID", mock.Anything, id).Return(nil, errBoom)
	db.On("UpdateUserByID", mock.Anything, id, mock.Anything).Return(nil, errBoom)
	db.On("DeleteUserByID", mock.Anything, id).Return(nil, errBoom)
	db.On("Ping", mock.Anything).Return(errBoom)

	server, _ := setupTestRouter(t, withMockStorage(db))
	defer server.Close()

	client := resty.New().SetBaseURL(server.URL)
	requests := []func() (*resty.Response, error){
		func() (*resty.Response, error) { return client.R().SetBody(`{"name":"a"}`).Post("/user") },
		func() (*resty.Response, error) { return client.R().Get("/user/" + id.Hex()) },
		func() (*resty.Response, error) { return client.R().SetBody(`{"name":"a"}`).Put("/user/" + id.Hex()) },
		func() (*resty.Response, error) { return client.R().Delete("/user/" + id.Hex()) },
		func() (*resty.Response, error) { return client.R().Get("/ping") },
	}

	for i, send := range requests {
		resp, err := send()
		require.NoError(t, err, "request #%d", i)
		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode(), "request #%d", i)
		assert.Equal(t, errBoom.Error(), strings.TrimSpace(resp.String()), "request #%d", i)
	}

	db.AssertExpectations(t)
}

func TestUpdateOfUnknownUser(t *testing.T) {
	id := primitive.NewObjectID()

	db := &mockstorage.StorageMock{}
	db.On("UpdateUserByID", mock.Anything, id, mock.Anything).
		Return(&storage.UpdateResult{MatchedCount: 0, ModifiedCount: 0}, nil).Once()

	server, _ := setupTestRouter(t, withMockStorage(db))
	defer server.Close()

	resp, err := resty.New().R().
		SetBody(`{"name":"Ann","location":"SF","title":"Eng"}`).
		Put(server.URL + "/user/" + id.Hex())
	require.NoError(t, err)

	assert.Equal(t, http.StatusNotFound, resp.StatusCode())
	assert.Equal(t, MsgUserNotFoundOnUpdate, strings.TrimSpace(resp.String()))

	db.AssertExpectations(t)
	db.AssertNotCalled(t, "GetUserByID", mock.Anything, mock.Anything)
}

func TestUpdateReadBackFailure(t *testing.T) {
	id := primitive.NewObjectID()

	db := &mockstorage.StorageMock{}
	db.On("UpdateUserByID", mock.Anything, id, mock.Anything).
		Return(&storage.UpdateResult{MatchedCount: 1, ModifiedCount: 1}, nil).Once()
	db.On("GetUserByID", mock.Anything, id).
		Return(nil, errors.New("connection refused")).Once()

	server, _ := setupTestRouter(t, withMockStorage(db))
	defer server.Close()

	resp, err := resty.New().R().
		SetBody(`{"name":"Ann","location":"SF","title":"Eng"}`).
		Put(server.URL + "/user/" + id.Hex())
	require.NoError(t, err)

	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode())
	assert.Contains(t, resp.String(), "connection refused")

	db.AssertExpectations(t)
}

func TestGetPing(t *testing.T) {
	server, _ := setupTestRouter(t)
	defer server.Close()

	resp, err := resty.New().R().Get(server.URL + "/ping")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode())
}

func TestGetInternalStats(t *testing.T) {
	server, db := setupTestRouter(t)
	defer server.Close()

	for i := 0; i < 3; i++ {
		_, err := db.CreateUser(context.Background(), user.New("u", "l", "t"))
		require.NoError(t, err)
	}

	resp, err := resty.New().R().
		SetHeader("X-Real-IP", "10.1.2.3").
		Get(server.URL + "/api/internal/stats")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode())
	assert.JSONEq(t, `{"users":3}`, resp.String())

	resp, err = resty.New().R().
		SetHeader("X-Real-IP", "192.168.1.1").
		Get(server.URL + "/api/internal/stats")
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode())
}

func TestMetricsEndpoint(t *testing.T) {
	server, _ := setupTestRouter(t)
	defer server.Close()

	_, err := resty.New().R().Get(server.URL + "/user/")
	require.NoError(t, err)

	resp, err := resty.New().R().Get(server.URL + "/metrics")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode())
	assert.Contains(t, resp.String(), `userapi_http_requests_total{method="GET",route="/user/",status="400"} 1`)
}
