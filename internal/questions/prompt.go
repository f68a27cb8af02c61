package questions

import "fmt"

// MaxTextLength is the number of code points of page text sent to the model.
// Anything past it is dropped, possibly mid-word.
const MaxTextLength = 2000

const (
	SystemPrompt = "You are a helpful assistant."
	MaxTokens    = 1500
	Temperature  = 0.7
)

const exampleQuestions = "'ما هي الضوابط لحماية البيانات الشخصية؟', " +
	"'ما هو التعريف لحماية البيانات الشخصية؟', and " +
	"'ما هي المواصفات الأساسية لحماية البيانات الشخصية؟'"

// Truncate returns the first max runes of text.
func Truncate(text string, max int) string {
	if max < 0 {
		max = 0
	}
	n := 0
	for i := range text {
		if n == max {
			return text[:i]
		}
		n++
	}
	return text
}

// BuildPrompt renders the user message for one page. text is truncated to
// MaxTextLength before it is embedded.
func BuildPrompt(text string, count int) string {
	return fmt.Sprintf(
		"Generate %d specific questions based on the following text. "+
			"The questions should be relevant to the content of the text and avoid asking about versions or structural details. "+
			"Ensure that the questions are designed such that the answers can be found within the text provided. "+
			"For example, if the text discusses the protection of personal data, questions might include: %s.\n\n"+
			"Text:\n\n%s\n\n"+
			"Questions:",
		count, exampleQuestions, Truncate(text, MaxTextLength),
	)
}
