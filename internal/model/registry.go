package model

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/wonny/agrimet/internal/contracts"
	"github.com/wonny/agrimet/internal/forecast"
	"github.com/wonny/agrimet/pkg/httputil"
)

// Registry 사용 가능한 예측 모델 목록 (config/models.yaml)
// ⭐ SSOT: 모델 피처 순서는 여기서만 정의
type Registry struct {
	Version int         `yaml:"version" json:"version"`
	Models  []ModelSpec `yaml:"models" json:"models"`

	baseDir string
}

// ModelSpec 모델 한 개
type ModelSpec struct {
	Name   string          `yaml:"name" json:"name"`
	Target contracts.Field `yaml:"target" json:"target"`
	Kind   string          `yaml:"kind" json:"kind"`

	// Drivers 비어 있으면 features 에서 추론, 둘 다 없으면 타깃별 기본값
	Drivers  []contracts.Field `yaml:"drivers,omitempty" json:"drivers,omitempty"`
	Features []string          `yaml:"features,omitempty" json:"features,omitempty"`

	// linear
	Intercept    float64   `yaml:"intercept,omitempty" json:"intercept,omitempty"`
	Coefficients []float64 `yaml:"coefficients,omitempty" json:"coefficients,omitempty"`

	// lookup
	Table string `yaml:"table,omitempty" json:"table,omitempty"`

	// remote
	Endpoint string `yaml:"endpoint,omitempty" json:"endpoint,omitempty"`
}

// ValidationError 레지스트리 검증 실패
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// LoadRegistry YAML 파일 읽기 + 검증. 원본 바이트도 함께 반환한다.
// KnownFields(true): 오타/미사용 필드는 즉시 실패
func LoadRegistry(path string) (*Registry, []byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}

	reg, err := ParseRegistry(data)
	if err != nil {
		return nil, data, err
	}
	reg.baseDir = filepath.Dir(path)
	return reg, data, nil
}

// ParseRegistry YAML 바이트 → Registry
func ParseRegistry(data []byte) (*Registry, error) {
	var reg Registry
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&reg); err != nil {
		return nil, fmt.Errorf("parse model registry: %w", err)
	}

	if err := reg.Validate(); err != nil {
		return nil, err
	}
	return &reg, nil
}

// Validate 모든 모델 검사
func (r *Registry) Validate() error {
	if len(r.Models) == 0 {
		return ValidationError{"models", "at least one model required"}
	}

	seen := make(map[string]bool, len(r.Models))
	for i, m := range r.Models {
		prefix := fmt.Sprintf("models[%d]", i)
		if m.Name == "" {
			return ValidationError{prefix + ".name", "required"}
		}
		if seen[m.Name] {
			return ValidationError{prefix + ".name", fmt.Sprintf("duplicate model %q", m.Name)}
		}
		seen[m.Name] = true

		if !m.Target.IsNumeric() {
			return ValidationError{prefix + ".target", fmt.Sprintf("%q is not a numeric field", m.Target)}
		}

		schema := m.Schema()
		if err := schema.Validate(); err != nil {
			return ValidationError{prefix + ".drivers", err.Error()}
		}
		if err := schema.CheckFeatures(m.FeatureNames()); err != nil {
			return ValidationError{prefix + ".features", err.Error()}
		}

		switch m.Kind {
		case KindLinear:
			if len(m.Coefficients) != len(m.FeatureNames()) {
				return ValidationError{prefix + ".coefficients", fmt.Sprintf("expected %d values, got %d", len(m.FeatureNames()), len(m.Coefficients))}
			}
		case KindLookup:
			if m.Table == "" {
				return ValidationError{prefix + ".table", "required for lookup models"}
			}
		case KindRemote:
			if m.Endpoint == "" {
				return ValidationError{prefix + ".endpoint", "required for remote models"}
			}
		default:
			return ValidationError{prefix + ".kind", fmt.Sprintf("must be one of %s, %s, %s", KindLinear, KindLookup, KindRemote)}
		}
	}
	return nil
}

// Schema 모델의 타깃/드라이버 구성
func (m ModelSpec) Schema() forecast.Schema {
	switch {
	case len(m.Drivers) > 0:
		return forecast.Schema{Target: m.Target, Drivers: m.Drivers}
	case len(m.Features) > 0:
		return forecast.SchemaFromFeatures(m.Target, m.Features)
	default:
		return forecast.DefaultSchema(m.Target)
	}
}

// FeatureNames 학습 순서. 지정이 없으면 스키마 기본 순서.
func (m ModelSpec) FeatureNames() []string {
	if len(m.Features) > 0 {
		return m.Features
	}
	return m.Schema().FeatureNames()
}

// Get 이름으로 모델 조회
func (r *Registry) Get(name string) (ModelSpec, bool) {
	for _, m := range r.Models {
		if m.Name == name {
			return m, true
		}
	}
	return ModelSpec{}, false
}

// Names 정렬된 모델 이름
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.Models))
	for _, m := range r.Models {
		names = append(names, m.Name)
	}
	sort.Strings(names)
	return names
}

// Hash 정규화된 JSON 의 SHA256 (실행 기록에 레지스트리 버전으로 남긴다)
func (r *Registry) Hash() (string, error) {
	b, err := json.Marshal(r)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}

// Build 모델 스펙으로 Predictor 생성
// remote 모델은 client 가 필요하다.
func (r *Registry) Build(m ModelSpec, client *httputil.Client) (contracts.Predictor, error) {
	switch m.Kind {
	case KindLinear:
		return NewLinearModel(m.FeatureNames(), m.Intercept, m.Coefficients)
	case KindLookup:
		path := m.Table
		if !filepath.IsAbs(path) && r.baseDir != "" {
			path = filepath.Join(r.baseDir, path)
		}
		return LoadLookupTable(path)
	case KindRemote:
		if client == nil {
			return nil, fmt.Errorf("model %s: remote model needs an HTTP client", m.Name)
		}
		return NewRemotePredictor(client, m.Endpoint), nil
	}
	return nil, fmt.Errorf("model %s: unknown kind %q", m.Name, m.Kind)
}
