// Package locale holds the message templates for user-facing text. Locales
// map to a struct of templates; unknown tags fall back to English
// explicitly.
package locale

// Messages is the full set of user-facing templates for one locale.
// Templates are fmt format strings.
type Messages struct {
	SomethingWentWrong string
	RegisterLink       string
	RegisterLinkSent   string
	Registered         string
	AttemptExpired     string

	CharacterNotFound          string
	CharacterAlreadyRegistered string
	CharacterNotInCorp         string
	CharacterLinked            string
	NotRegistered              string
	Unregistered               string

	CorporationNotFound string
	RuleCreated         string
	RuleUpdated         string
	RuleRemoved         string
	RuleNotFound        string
	RulesNotFound       string

	RoleGranted        string
	RoleRevoked        string
	RoleAlreadyGranted string
}

const (
	EnUS = "en-US"
	Ru   = "ru"
)

var table = map[string]Messages{
	EnUS: {
		SomethingWentWrong: "Something went wrong.",
		RegisterLink:       "Hello %s! Use the link below to log in with EVE Online and link a character on %s. The link expires in %d minutes.",
		RegisterLinkSent:   "%s, a registration link has been sent to you in a direct message.",
		Registered:         "Character registered successfully. You can close this page and return to Discord.",
		AttemptExpired:     "Registration link expired or already used. Please start over.",

		CharacterNotFound:          "Character with ID %d not found.",
		CharacterAlreadyRegistered: "Character with ID %d has been registered already.",
		CharacterNotInCorp:         "Character is not a member of the linked corporation.",
		CharacterLinked:            "Character %s linked to %s.",
		NotRegistered:              "User is not registered on this server.",
		Unregistered:               "Registration removed.",

		CorporationNotFound: "Corporation with ID %d not found.",
		RuleCreated:         "New rule: members of %s [%s] receive the role.",
		RuleUpdated:         "Rule updated.",
		RuleRemoved:         "Rule removed.",
		RuleNotFound:        "Rule doesn't exist.",
		RulesNotFound:       "No rules configured for this server.",

		RoleGranted:        "Role granted to %s.",
		RoleRevoked:        "Role revoked from %s.",
		RoleAlreadyGranted: "Role already granted.",
	},
	Ru: {
		SomethingWentWrong: "Что-то пошло не так.",
		RegisterLink:       "Привет, %s! Используйте ссылку ниже для входа через EVE Online и привязки персонажа на %s. Ссылка истекает через %d минут.",
		RegisterLinkSent:   "%s, ссылка для регистрации отправлена вам в личные сообщения.",
		Registered:         "Персонаж успешно зарегистрирован. Можете закрыть страницу и вернуться в Discord.",
		AttemptExpired:     "Ссылка для регистрации истекла или уже использована. Начните заново.",

		CharacterNotFound:          "Персонаж с ID %d не найден.",
		CharacterAlreadyRegistered: "Персонаж с ID %d уже зарегистрирован.",
		CharacterNotInCorp:         "Персонаж не состоит в привязанной корпорации.",
		CharacterLinked:            "Персонаж %s привязан к %s.",
		NotRegistered:              "Пользователь не зарегистрирован на этом сервере.",
		Unregistered:               "Регистрация удалена.",

		CorporationNotFound: "Корпорация с ID %d не найдена.",
		RuleCreated:         "Новое правило: участники %s [%s] получают роль.",
		RuleUpdated:         "Правило обновлено.",
		RuleRemoved:         "Правило удалено.",
		RuleNotFound:        "Правило не существует.",
		RulesNotFound:       "Для этого сервера не настроены правила.",

		RoleGranted:        "Роль выдана %s.",
		RoleRevoked:        "Роль снята с %s.",
		RoleAlreadyGranted: "Роль уже выдана.",
	},
}

// For returns the message set for a locale tag, falling back to en-US for
// anything not in the table.
func For(tag string) Messages {
	if m, ok := table[tag]; ok {
		return m
	}
	return table[EnUS]
}
