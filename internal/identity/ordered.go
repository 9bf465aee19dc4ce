// Файл ordered.go — разбор JSON-объектов с сохранением порядка ключей.
// encoding/json декодирует объекты в map и теряет порядок, а документ должен
// отрисовываться в том порядке, в котором его поля отдал сервер. Поэтому
// объекты читаются потоково через json.Decoder.Token.

package identity

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/go-faster/errors"
)

// DecodeOrderedObject разбирает data как JSON-объект в срез Field с исходным
// порядком ключей. Числа остаются json.Number, чтобы при печати сохранялась
// исходная запись (без экспоненты и потери точности).
func DecodeOrderedObject(data []byte) ([]Field, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	fields, err := decodeObject(dec)
	if err != nil {
		return nil, errors.Wrap(err, "decode ordered object")
	}
	return fields, nil
}

// decodeObject читает объект, начиная с открывающей '{'.
func decodeObject(dec *json.Decoder) ([]Field, error) {
	if err := expectDelim(dec, '{'); err != nil {
		return nil, err
	}

	fields := make([]Field, 0)
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("object key is %T, want string", keyTok)
		}
		value, err := decodeValue(dec)
		if err != nil {
			return nil, err
		}
		fields = append(fields, Field{Key: key, Value: value})
	}
	// Закрывающая '}' после исчерпания More().
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return fields, nil
}

// decodeValue читает одно значение: примитив, вложенный объект ([]Field)
// или массив ([]any). Глубина не ограничивается; решение о том, сколько
// уровней отображать, принимает рендер.
func decodeValue(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	delim, ok := tok.(json.Delim)
	if !ok {
		// Примитив: string, json.Number, bool или nil.
		return tok, nil
	}

	switch delim {
	case '{':
		fields := make([]Field, 0)
		for dec.More() {
			keyTok, keyErr := dec.Token()
			if keyErr != nil {
				return nil, keyErr
			}
			key, isStr := keyTok.(string)
			if !isStr {
				return nil, fmt.Errorf("object key is %T, want string", keyTok)
			}
			value, valErr := decodeValue(dec)
			if valErr != nil {
				return nil, valErr
			}
			fields = append(fields, Field{Key: key, Value: value})
		}
		if _, err = dec.Token(); err != nil {
			return nil, err
		}
		return fields, nil

	case '[':
		items := make([]any, 0)
		for dec.More() {
			item, itemErr := decodeValue(dec)
			if itemErr != nil {
				return nil, itemErr
			}
			items = append(items, item)
		}
		if _, err = dec.Token(); err != nil {
			return nil, err
		}
		return items, nil

	default:
		return nil, fmt.Errorf("unexpected delimiter %q", delim)
	}
}

// expectDelim проверяет, что следующий токен — указанный разделитель.
func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	delim, ok := tok.(json.Delim)
	if !ok || delim != want {
		return fmt.Errorf("unexpected token %v, want %q", tok, want)
	}
	return nil
}
