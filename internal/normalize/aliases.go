package normalize

import (
	"strings"

	"github.com/wonny/agrimet/internal/contracts"
)

// rawAliases 관측소 원본 코드 → 정규 필드
// ⭐ SSOT: 원본 컬럼 코드 매핑은 여기서만
var rawAliases = map[string]contracts.Field{
	"TANGGAL": contracts.FieldDate,
	"TN":      contracts.FieldMinTemp,
	"TX":      contracts.FieldMaxTemp,
	"TAVG":    contracts.FieldMeanTemp,
	"RH_AVG":  contracts.FieldMeanHumidity,
	"RR":      contracts.FieldRainfall,
	"SS":      contracts.FieldSunshine,
	"FF_X":    contracts.FieldMaxWindSpeed,
	"DDD_X":   contracts.FieldMaxWindDir,
	"FF_AVG":  contracts.FieldMeanWindSpeed,
	"DDD_CAR": contracts.FieldWindCardinal,
}

var rawCodes = func() map[contracts.Field]string {
	m := make(map[contracts.Field]string, len(rawAliases))
	for code, f := range rawAliases {
		m[f] = code
	}
	return m
}()

// Canonical 원본 코드(또는 이미 정규화된 이름)를 필드로 변환
func Canonical(code string) (contracts.Field, bool) {
	code = strings.TrimSpace(code)
	if f, ok := rawAliases[strings.ToUpper(code)]; ok {
		return f, true
	}
	if _, ok := rawCodes[contracts.Field(code)]; ok {
		return contracts.Field(code), true
	}
	return "", false
}

// RawCode 필드의 원본 코드
func RawCode(f contracts.Field) string {
	return rawCodes[f]
}
