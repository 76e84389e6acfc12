package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/medisage/leaflet-rag/internal/rag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeService struct {
	qc        *rag.QueryContext
	askErr    error
	status    rag.Status
	statusErr error

	lastQuestion string
	lastTopK     int
}

func (f *fakeService) Ask(ctx context.Context, question string, topK int) (*rag.QueryContext, error) {
	f.lastQuestion = question
	f.lastTopK = topK
	if f.askErr != nil {
		return nil, f.askErr
	}
	return f.qc, nil
}

func (f *fakeService) Status(ctx context.Context) (rag.Status, error) {
	return f.status, f.statusErr
}

func newTestRouter(svc QueryService) http.Handler {
	return NewRouter(NewHandler(svc, zap.NewNop()))
}

func TestHealth(t *testing.T) {
	router := newTestRouter(&fakeService{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestAsk(t *testing.T) {
	svc := &fakeService{
		qc: &rag.QueryContext{
			RawQuestion:       "Can I drink alcohol with ibuprofen?",
			EffectiveQuestion: "Can I drink alcohol with ibuprofen?",
			TopK:              1,
			Results: []rag.RetrievalResult{
				{
					Fragment: rag.Fragment{
						ID:       1,
						DrugName: "Ibuprofen",
						Section:  rag.SectionDrugInteractions,
						Text:     "Avoid alcohol...",
					},
					Score: 0.82,
				},
			},
			Answer:           "Avoid alcohol with ibuprofen.",
			GenerationStatus: rag.GenerationOK,
		},
	}
	router := newTestRouter(svc)

	body := `{"question": "Can I drink alcohol with ibuprofen?", "topK": 1}`
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/ask", strings.NewReader(body)))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Can I drink alcohol with ibuprofen?", svc.lastQuestion)
	assert.Equal(t, 1, svc.lastTopK)

	var got rag.QueryContext
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, rag.GenerationOK, got.GenerationStatus)
	assert.Equal(t, "Avoid alcohol with ibuprofen.", got.Answer)
	require.Len(t, got.Results, 1)
	assert.Equal(t, "Ibuprofen", got.Results[0].Fragment.DrugName)
}

func TestAskInvalidBody(t *testing.T) {
	router := newTestRouter(&fakeService{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/ask", strings.NewReader("{not json")))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAskEmptyQuestion(t *testing.T) {
	router := newTestRouter(&fakeService{askErr: rag.ErrEmptyQuestion})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/ask", strings.NewReader(`{"question": ""}`)))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAskStoreUnavailable(t *testing.T) {
	router := newTestRouter(&fakeService{askErr: rag.ErrStoreUnavailable})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/ask", strings.NewReader(`{"question": "q"}`)))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestAskEmbeddingError(t *testing.T) {
	router := newTestRouter(&fakeService{askErr: rag.ErrEmbeddingFailed})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/ask", strings.NewReader(`{"question": "q"}`)))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestStatus(t *testing.T) {
	svc := &fakeService{
		status: rag.Status{
			Index:       rag.IndexInfo{Count: 57, VectorSize: 768},
			GeneratorUp: true,
		},
	}
	router := newTestRouter(svc)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var got rag.Status
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, int64(57), got.Index.Count)
	assert.Equal(t, 768, got.Index.VectorSize)
	assert.True(t, got.GeneratorUp)
}

func TestStatusStoreError(t *testing.T) {
	router := newTestRouter(&fakeService{statusErr: rag.ErrStoreUnavailable})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestAskMethodNotAllowed(t *testing.T) {
	router := newTestRouter(&fakeService{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ask", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
