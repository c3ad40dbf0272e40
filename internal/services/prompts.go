package services

import (
	"fmt"
	"student-taskgen/internal/models"
)

// System instructions fix the required output shape. The extended prompt adds
// role-specific guidance and asks for uniqueness across students; uniqueness
// is a soft request only, the hard guarantee is the dedup pass.

const systemPromptExtended = "Ты — ассистент по генерации индивидуальных задач для студентов, работающих над проектом в команде. " +
	"Для каждого студента придумай одну уникальную задачу, подходящую именно для его роли (например, Аналитик, Тестировщик, Менеджер, Дизайнер). " +
	"Используй специфику роли:\n" +
	"- Аналитик: задачи по анализу требований, ТЗ, исследованию предметной области.\n" +
	"- Тестировщик: задачи по тестированию, написанию тест-кейсов, поиску багов, отчётности о дефектах.\n" +
	"- Менеджер: задачи по координации, контролю сроков, коммуникации, распределению задач.\n" +
	"- Дизайнер: задачи по макетам, прототипам, UI/UX, подготовке графических материалов.\n" +
	"Ответ — строго ОДИН JSON без текста вокруг. Поля:\n" +
	"{" +
	"\"title\": \"Коротко, до 5 слов\"," +
	"\"description\": \"Подробное, без \\n, структурированное описание, на русском\"," +
	"\"status\": \"new | in_progress | completed | cancelled\"," +
	"\"priority\": \"low | medium | high | critical\"," +
	"\"role\": \"роль на русском\"," +
	"\"executor\": \"полное имя студента\"," +
	"\"author\": \"AI\"" +
	"}\n" +
	"Никаких пояснений, ровно один JSON. Не повторяй формулировки между студентами, особенно title и description."

const systemPromptStrict = "Ты — ассистент, который на основе технического задания формирует одну задачу для конкретного студента.\n" +
	"Тебе необходимо вернуть строго один JSON-объект (никаких текстовых описаний) с точно шестью полями:\n" +
	"  {\n" +
	"    \"title\": \"<короткий заголовок, не более 5 слов, без лишних символов>\",\n" +
	"    \"description\": \"<подробное описание задачи на литературном русском>\",\n" +
	"    \"status\": \"Todo\",\n" +
	"    \"role\": \"<роль студента на русском, напр. Аналитик>\",\n" +
	"    \"executor\": \"<полное имя студента>\",\n" +
	"    \"author\": \"AI\"\n" +
	"  }\n" +
	"Критерии:\n" +
	"- title: не более пяти слов, без кавычек внутри, без переносов строк.\n" +
	"- description: литературный русский, может быть длинным, но без символов '\\n' внутри.\n" +
	"- status всегда \"Todo\".\n" +
	"- role — слово на русском.\n" +
	"- executor — строка с полным именем студента.\n" +
	"- author — строка \"AI\".\n" +
	"Никаких дополнительных полей, никаких комментариев, ровно один JSON."

func buildSystemPrompt(mode models.OutputMode) string {
	if mode == models.ModeStrict {
		return systemPromptStrict
	}
	return systemPromptExtended
}

func buildUserPrompt(documentText string, student models.Student, mode models.OutputMode) string {
	if mode == models.ModeStrict {
		return fmt.Sprintf(
			"Техническое задание:\n%s\n\nСтудент: %s\nРоль: %s\nПожалуйста, верни JSON с задачей.",
			documentText, student.Name, student.LocalizedRole)
	}
	return fmt.Sprintf(
		"Техническое задание:\n%s\n\nСтудент: %s\nРоль: %s\n"+
			"Придумай индивидуальную задачу, максимально подходящую для этой роли. "+
			"Задача должна быть уникальной (не совпадать с предыдущими), релевантной компетенциям студента и подробно описанной. "+
			"Верни строго валидный JSON. Без комментариев и постороннего текста!",
		documentText, student.Name, student.LocalizedRole)
}
