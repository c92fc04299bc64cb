package enrich

import "fmt"

func translatePrompt(lang, text string) string {
	return fmt.Sprintf("Translate the following English text to %s:\n\n---\n%s\n---", lang, text)
}

func titlePrompt(lang, text string) string {
	return fmt.Sprintf("Create a concise and representative title in %s for the following English text. "+
		"Provide only the title text without any quotation marks or extra words.\n\n---\n%s\n---", lang, text)
}

func summaryPrompt(lang, text string) string {
	return fmt.Sprintf("Summarize the following English text into a 3-point bullet list in %s:\n\n---\n%s\n---", lang, text)
}
