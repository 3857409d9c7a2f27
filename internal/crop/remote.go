package crop

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/wonny/agrimet/pkg/httputil"
)

// RemoteClassifier 외부 분류 서버
// 요청: {"features": {"N": .., ...}} / 응답: {"class": index}
type RemoteClassifier struct {
	client   *httputil.Client
	endpoint string
}

// NewRemoteClassifier 새 원격 분류기 생성
func NewRemoteClassifier(client *httputil.Client, endpoint string) *RemoteClassifier {
	return &RemoteClassifier{client: client, endpoint: endpoint}
}

// Classify implements Classifier
func (c *RemoteClassifier) Classify(ctx context.Context, features []float64) (int, error) {
	payload := make(map[string]float64, len(features))
	for i, v := range features {
		if i < len(FeatureNames) {
			payload[FeatureNames[i]] = v
		}
	}

	resp, err := c.client.PostJSON(ctx, c.endpoint, map[string]interface{}{"features": payload})
	if err != nil {
		return -1, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return -1, fmt.Errorf("crop classifier: status %d: %s", resp.StatusCode, body)
	}

	var out struct {
		Class *int `json:"class"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return -1, fmt.Errorf("crop classifier: decode response: %w", err)
	}
	if out.Class == nil {
		return -1, fmt.Errorf("crop classifier: response has no class")
	}
	return *out.Class, nil
}
