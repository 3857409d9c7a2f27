package crop

// Labels 분류기 출력 인덱스 → 작물 이름 (학습 시 label encoding 순서)
var Labels = []string{
	"rice",
	"maize",
	"chickpea",
	"kidneybeans",
	"pigeonpeas",
	"mothbeans",
	"mungbean",
	"blackgram",
	"lentil",
	"pomegranate",
	"banana",
	"mango",
	"grape",
	"watermelon",
	"muskmelon",
	"apple",
	"orange",
	"papaya",
	"coconut",
	"cotton",
	"jute",
	"coffee",
}

// UnknownLabel 범위를 벗어난 인덱스
const UnknownLabel = "unknown"

// Label 인덱스 → 이름
func Label(index int) string {
	if index < 0 || index >= len(Labels) {
		return UnknownLabel
	}
	return Labels[index]
}

// IndexOf 이름 → 인덱스 (-1: 없음)
func IndexOf(label string) int {
	for i, l := range Labels {
		if l == label {
			return i
		}
	}
	return -1
}
