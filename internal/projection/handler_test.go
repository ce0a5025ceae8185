package projection

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	v1 "github.com/aevon-lab/project-dimsync/internal/api/v1"
	httperr "github.com/aevon-lab/project-dimsync/internal/core/errors"
	"github.com/aevon-lab/project-dimsync/internal/core/storage"
	storagemocks "github.com/aevon-lab/project-dimsync/internal/mocks/storage"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestService_Handlers_StatusMapping(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name           string
		path           string
		expectedStatus int
		expectedType   string
		configure      func(reader *storagemocks.Reader)
	}{
		{
			name:           "unknown dimension returns 404",
			path:           "/v1/dimensions/supplier",
			expectedStatus: http.StatusNotFound,
			expectedType:   httperr.HttpEntityNotFoundError,
			configure:      func(_ *storagemocks.Reader) {},
		},
		{
			name:           "missing record returns 404",
			path:           "/v1/dimensions/customer/C9",
			expectedStatus: http.StatusNotFound,
			expectedType:   httperr.HttpRecordNotFoundError,
			configure: func(reader *storagemocks.Reader) {
				reader.EXPECT().
					LookupCurrent(mock.Anything, "customer", "C9").
					Return(nil, &httperr.NotFoundError{Entity: "customer", Key: "C9"}).
					Once()
			},
		},
		{
			name:           "invalid as_of returns 400",
			path:           "/v1/dimensions/customer/C1?as_of=yesterday",
			expectedStatus: http.StatusBadRequest,
			expectedType:   httperr.HttpInvalidJsonError,
			configure:      func(_ *storagemocks.Reader) {},
		},
		{
			name:           "store error returns 500",
			path:           "/v1/dimensions/customer",
			expectedStatus: http.StatusInternalServerError,
			expectedType:   httperr.HttpInternalError,
			configure: func(reader *storagemocks.Reader) {
				reader.EXPECT().
					CurrentView(mock.Anything, "customer").
					Return(nil, errors.New("db failure")).
					Once()
			},
		},
		{
			name:           "fact path rejects dimensions",
			path:           "/v1/facts/customer/C1",
			expectedStatus: http.StatusNotFound,
			expectedType:   httperr.HttpEntityNotFoundError,
			configure:      func(_ *storagemocks.Reader) {},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reader := storagemocks.NewReader(t)
			tt.configure(reader)

			r := gin.New()
			NewService(testRegistry(t), reader).RegisterRoutes(r)

			resp := httptest.NewRecorder()
			r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, tt.path, nil))

			require.Equal(t, tt.expectedStatus, resp.Code)
			var errResp httperr.ErrorResponse
			require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &errResp))
			assert.Equal(t, tt.expectedType, errResp.ErrorType)
		})
	}
}

func TestService_HandleHistory(t *testing.T) {
	gin.SetMode(gin.TestMode)
	reader := storagemocks.NewReader(t)
	reader.EXPECT().History(mock.Anything, "customer", "C1").Return(aliceHistory(), nil).Once()

	r := gin.New()
	NewService(testRegistry(t), reader).RegisterRoutes(r)

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/v1/dimensions/customer/C1/history", nil))

	require.Equal(t, http.StatusOK, resp.Code)
	var body HistoryResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	require.Len(t, body.Versions, 2)
	assert.Equal(t, 1, body.Versions[0].Version)
	require.NotNil(t, body.Versions[0].EndAt)
	assert.True(t, body.Versions[0].EndAt.Equal(t1))
	assert.Nil(t, body.Versions[1].EndAt)
}

func TestService_HandleLookupAsOf(t *testing.T) {
	gin.SetMode(gin.TestMode)
	reader := storagemocks.NewReader(t)
	reader.EXPECT().History(mock.Anything, "customer", "C1").Return(aliceHistory(), nil).Once()

	r := gin.New()
	NewService(testRegistry(t), reader).RegisterRoutes(r)

	path := "/v1/dimensions/customer/C1?as_of=" + t0.Add(time.Hour).Format(time.RFC3339)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, path, nil))

	require.Equal(t, http.StatusOK, resp.Code)
	var view v1.DimensionView
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &view))
	assert.Equal(t, "Alice", view.Attributes["name"])
}

func TestService_HandleFact(t *testing.T) {
	gin.SetMode(gin.TestMode)
	reader := storagemocks.NewReader(t)
	reader.EXPECT().
		FactByNaturalKey(mock.Anything, "order", "O1").
		Return(&storage.FactRecord{
			SurrogateKey:  7,
			Entity:        "order",
			NaturalKey:    "O1",
			DimensionKeys: map[string]int64{"customer_key": 2},
			Measures:      map[string]decimal.Decimal{"quantity": decimal.NewFromInt(3)},
		}, nil).
		Once()

	r := gin.New()
	NewService(testRegistry(t), reader).RegisterRoutes(r)

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/v1/facts/order/O1", nil))

	require.Equal(t, http.StatusOK, resp.Code)
	var view v1.FactView
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &view))
	assert.Equal(t, int64(2), view.DimensionKeys["customer_key"])
	assert.Equal(t, "3", view.Measures["quantity"].String())
}
