package inference

import (
	"errors"
	"fmt"

	"helmet-safety-go/pkg/models"
)

// ErrUnknownClass класс бокса отсутствует в таблице имен модели
var ErrUnknownClass = errors.New("unknown class id")

// Box один бокс в формате вывода YOLO
type Box struct {
	Class      int       `json:"cls"`  // Индекс класса в таблице names
	Confidence float64   `json:"conf"` // Уверенность
	XYWH       []float64 `json:"xywh"` // Центр, ширина и высота в пикселях
}

// Result сырой результат модели для одного кадра
type Result struct {
	Names map[int]string `json:"names"`
	Boxes []Box          `json:"boxes"`
}

// Detections переводит боксы модели в детекции движка
func (r Result) Detections() ([]models.Detection, error) {
	detections := make([]models.Detection, 0, len(r.Boxes))

	for i, box := range r.Boxes {
		name, ok := r.Names[box.Class]
		if !ok {
			return nil, fmt.Errorf("box %d: %w %d", i, ErrUnknownClass, box.Class)
		}
		if len(box.XYWH) != 4 {
			return nil, fmt.Errorf("box %d: xywh must have 4 values, got %d", i, len(box.XYWH))
		}

		detections = append(detections, models.Detection{
			ObjectType:  models.ObjectType(name),
			Confidence:  box.Confidence,
			BoundingBox: models.BoundingBox{box.XYWH[0], box.XYWH[1], box.XYWH[2], box.XYWH[3]},
		})
	}

	return detections, nil
}
