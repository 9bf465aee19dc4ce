// Package dialog — конечный автомат многошаговых диалогов: логин и
// регистрация. Каждый flow — линейная последовательность полей без ветвлений
// и пропусков; очередное текстовое сообщение пользователя — значение текущего
// шага как есть. Содержимое полей здесь не валидируется: единственный арбитр
// валидности — Identity API.
package dialog

// FlowKind помечает активный диалог пользователя.
type FlowKind int

const (
	// FlowNone — активного диалога нет.
	FlowNone FlowKind = iota
	// FlowLogin — сбор email и пароля для входа.
	FlowLogin
	// FlowRegister — сбор анкеты регистрации.
	FlowRegister
)

// Имена полей совпадают с ключами анкеты Identity API, где это возможно.
const (
	fieldEmail       = "email"
	fieldPassword    = "password"
	fieldFirstName   = "first_name"
	fieldLastName    = "last_name"
	fieldNationality = "nationality"
	fieldSex         = "sex"
	fieldPhoneNumber = "phone_number"
	fieldBornPlace   = "born_place"
	fieldBornDate    = "born_date"
)

// loginFields — порядок шагов входа.
var loginFields = []string{fieldEmail, fieldPassword}

// registerFields — порядок шагов регистрации. Порядок фиксирован и виден
// пользователю, менять без миграции подсказок нельзя.
var registerFields = []string{
	fieldEmail,
	fieldPassword,
	fieldFirstName,
	fieldLastName,
	fieldNationality,
	fieldSex,
	fieldPhoneNumber,
	fieldBornPlace,
	fieldBornDate,
}

// prompts — реплики, запрашивающие очередное поле.
var prompts = map[string]string{
	fieldEmail:       "Please enter your email:",
	fieldPassword:    "Please enter your password:",
	fieldFirstName:   "Please enter your first name:",
	fieldLastName:    "Please enter your last name:",
	fieldNationality: "Please enter your nationality:",
	fieldSex:         "Please enter your sex:",
	fieldPhoneNumber: "Please enter your phone number:",
	fieldBornPlace:   "Please enter your born place:",
	fieldBornDate:    "Please enter your born date:",
}

// fieldsOf возвращает последовательность полей флоу.
func fieldsOf(kind FlowKind) []string {
	switch kind {
	case FlowLogin:
		return loginFields
	case FlowRegister:
		return registerFields
	default:
		return nil
	}
}

// State — разговорное состояние одного пользователя. Живёт только на время
// активного флоу: создаётся при старте, уничтожается при завершении или
// отмене. Инвариант: Fields содержит ключи только пройденных шагов, Step в
// рамках одного флоу не убывает.
type State struct {
	Flow   FlowKind
	Step   int
	Fields map[string]string
}

// current возвращает имя поля текущего шага.
func (s *State) current() string {
	fields := fieldsOf(s.Flow)
	if s.Step < 0 || s.Step >= len(fields) {
		return ""
	}
	return fields[s.Step]
}

// record сохраняет значение текущего шага и продвигает Step.
// Возвращает true, когда пройдено последнее поле.
func (s *State) record(value string) (done bool) {
	s.Fields[s.current()] = value
	s.Step++
	return s.Step >= len(fieldsOf(s.Flow))
}
