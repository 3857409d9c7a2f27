package model

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/wonny/agrimet/internal/contracts"
	"github.com/wonny/agrimet/pkg/httputil"
)

// RemotePredictor 외부 모델 서버에 피처를 보내 예측값을 받는다
// 요청: {"date": "...", "features": {name: value}} / 응답: {"prediction": x}
type RemotePredictor struct {
	client   *httputil.Client
	endpoint string
}

type remoteRequest struct {
	Date     string             `json:"date"`
	Features map[string]float64 `json:"features"`
}

type remoteResponse struct {
	Prediction *float64 `json:"prediction"`
}

// NewRemotePredictor 새 원격 예측기 생성
func NewRemotePredictor(client *httputil.Client, endpoint string) *RemotePredictor {
	return &RemotePredictor{client: client, endpoint: endpoint}
}

// Predict implements contracts.Predictor
func (p *RemotePredictor) Predict(ctx context.Context, fv contracts.FeatureVector) (float64, error) {
	resp, err := p.client.PostJSON(ctx, p.endpoint, remoteRequest{
		Date:     fv.Date.Format("2006-01-02"),
		Features: fv.Map(),
	})
	if err != nil {
		return 0, fmt.Errorf("remote predictor: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return 0, fmt.Errorf("remote predictor: status %d: %s", resp.StatusCode, body)
	}

	var out remoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, fmt.Errorf("remote predictor: decode response: %w", err)
	}
	if out.Prediction == nil {
		return 0, fmt.Errorf("remote predictor: response has no prediction")
	}
	return *out.Prediction, nil
}

// Kind metrics 라벨
func (p *RemotePredictor) Kind() string {
	return KindRemote
}
