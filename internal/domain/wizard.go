package domain

type WizardMode string

const (
	// ModeUpload - начальный режим, ожидание эскиза или выбора ручного ввода.
	ModeUpload WizardMode = "upload"
	// ModeProcessing - эскиз отправлен на распознавание.
	ModeProcessing WizardMode = "processing"
	// ModeReview - пользователь проверяет и правит распознанные параметры.
	ModeReview WizardMode = "review"
	// ModeClarify - открыта панель уточнения с ИИ-ассистентом.
	ModeClarify WizardMode = "clarify"
	// ModeManual - ручной ввод параметров без эскиза.
	ModeManual WizardMode = "manual"
)

// validTransitions defines the wizard mode machine. Confirm is not a mode:
// it is an exit action allowed from review, manual and clarify.
var validTransitions = map[WizardMode][]WizardMode{
	ModeUpload: {
		ModeProcessing, // файл выбран
		ModeManual,     // пользователь выбрал ручной ввод
	},
	ModeProcessing: {
		ModeReview, // распознавание успешно
		ModeUpload, // распознавание не удалось
	},
	ModeReview: {
		ModeClarify, // пользователь запросил помощь ИИ
	},
	ModeClarify: {
		ModeReview, // панель закрыта
	},
	ModeManual: {},
}

func IsValidTransition(from, to WizardMode) bool {
	for _, allowed := range validTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

func ValidNextModes(from WizardMode) []WizardMode {
	return validTransitions[from]
}

// ConfirmAllowedFrom reports whether the confirm exit action may fire from
// the given mode. The cabinet-type and in-flight guards live in the usecase.
func ConfirmAllowedFrom(m WizardMode) bool {
	return m == ModeReview || m == ModeManual || m == ModeClarify
}

func IsValidMode(m WizardMode) bool {
	switch m {
	case ModeUpload, ModeProcessing, ModeReview, ModeClarify, ModeManual:
		return true
	}
	return false
}
