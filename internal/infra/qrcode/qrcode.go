// Package qrcode — кодирование и распознавание QR-кодов.
// Исходящее направление: код подтверждения документа превращается в PNG
// (rsc.io/qr). Входящее: из присланной фотографии извлекается полезная
// нагрузка единственного QR-кода (gozxing). Пакет не знает о Telegram и
// Identity API — только байты и строки.
package qrcode

import (
	"bytes"
	"image"
	_ "image/jpeg" // Telegram отдаёт фотографии в JPEG
	_ "image/png"

	"github.com/go-faster/errors"
	"github.com/makiuchi-d/gozxing"
	zxqr "github.com/makiuchi-d/gozxing/qrcode"
	"rsc.io/qr"
)

// ErrNotFound — на изображении не удалось распознать QR-код. Для бота это
// терминальный пользовательский исход, а не сбой.
var ErrNotFound = errors.New("no qr code found")

// Codec — конкретная реализация кодека поверх rsc.io/qr и gozxing.
// Состояния нет, нулевое значение готово к работе.
type Codec struct{}

// EncodePNG кодирует text в QR уровня M и возвращает PNG-байты.
func (Codec) EncodePNG(text string) ([]byte, error) {
	code, err := qr.Encode(text, qr.M)
	if err != nil {
		return nil, errors.Wrap(err, "encode qr")
	}
	return code.PNG(), nil
}

// DecodeBytes декодирует изображение (JPEG/PNG) и извлекает полезную нагрузку
// QR-кода. Любая неудача распознавания сворачивается в ErrNotFound: различать
// «кода нет» и «код нечитаем» пользователю незачем.
func (Codec) DecodeBytes(data []byte) (string, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return "", errors.Wrap(err, "decode image")
	}
	return decodeImage(img)
}

// decodeImage запускает распознавание QR поверх готового image.Image.
func decodeImage(img image.Image) (string, error) {
	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		return "", errors.Wrap(err, "binarize image")
	}

	result, err := zxqr.NewQRCodeReader().Decode(bmp, nil)
	if err != nil {
		return "", ErrNotFound
	}
	return result.GetText(), nil
}
