package inference

import (
	"errors"

	"helmet-safety-go/pkg/models"
)

// ErrAmbiguousFrame в кадре указаны и детекции, и сырой результат модели
var ErrAmbiguousFrame = errors.New("frame must carry either detections or result, not both")

// Frame детекции одного кадра: готовые или сырой вывод модели
type Frame struct {
	Frame      *int               `json:"frame"`
	Detections []models.Detection `json:"detections"`
	Result     *Result            `json:"result,omitempty"`
}

// Resolve возвращает проверенные детекции кадра
func (f Frame) Resolve() ([]models.Detection, error) {
	detections := f.Detections
	if f.Result != nil {
		if len(f.Detections) > 0 {
			return nil, ErrAmbiguousFrame
		}

		converted, err := f.Result.Detections()
		if err != nil {
			return nil, err
		}
		detections = converted
	}

	for _, d := range detections {
		if err := d.Validate(); err != nil {
			return nil, err
		}
	}
	return detections, nil
}
