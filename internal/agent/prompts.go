package agent

import (
	"strings"

	"github.com/colonyops/promptstack/internal/core/parser"
	"github.com/colonyops/promptstack/pkg/tmpl"
)

// FormatInstructions describes the reply contract to the model.
const FormatInstructions = "Respond with a single JSON object wrapped in triple backticks and marked as json (```json ... ```). The object has exactly these fields:\n" +
	"- \"remarks\": a short note for the user about what you did or what you need.\n" +
	"- \"success\": true when the task is complete, false otherwise.\n" +
	"- \"code\": an array of tool calls, each {\"tool\", \"path\", \"code\", \"start\", \"end\"}.\n" +
	"\n" +
	"Tools:\n" +
	"- \"read\": read a file. Optional start/end select a line range.\n" +
	"- \"create\": create a new file at path with code as its full content.\n" +
	"- \"edit\": replace lines start..end (1-based, inclusive) of path with code. Use start 0 and end 0 to replace the whole file.\n" +
	"- \"delete\": delete the file at path.\n" +
	"\n" +
	"Use 0 for start and end when they do not apply. Escape quotes and newlines inside code so the JSON stays valid. " +
	"Return an empty code array with success true when nothing is left to change, or with success false to ask the user a question.\n" +
	"\n" +
	"Example:\n" +
	"```json\n" +
	"{\n" +
	"  \"remarks\": \"Added a hero section to the home page\",\n" +
	"  \"success\": true,\n" +
	"  \"code\": [\n" +
	"    {\"tool\": \"edit\", \"path\": \"src/app/page.js\", \"code\": \"export default function Home() {\\n  return <Hero />;\\n}\", \"start\": 3, \"end\": 5}\n" +
	"  ]\n" +
	"}\n" +
	"```"

// FallbackReminder is sent when a reply was accepted from an unmarked block.
const FallbackReminder = "Your JSON response was not wrapped in triple backticks and marked as json. Please always wrap your JSON in triple backticks and mark as json (```json ... ```)."

const buildFixRequest = `I am facing issues building the project. The build logs are below; please correct these errors. I want build-ready code with no more build errors.
TRY THIS ALSO
DISABLE ESLINT FROM FILE
{{ .Logs }}

Original request:
{{ .Request }}`

var taskTmpl = tmpl.MustParse("task", `{{ trim .Brief }}
{{ if .Tip }}
##TIP: Read the files first before editing so that you can get the exact start and end lines.
{{ end }}
The file structure of the project is:
{{ indent 4 .Structure }}

This is the format instructions
{{ .Format }}

User says:
{{ .Request }}

IMPORTANT: DISABLE ESLINT FROM FILE YOU EDIT OR CREATE`)

var buildFixTmpl = tmpl.MustParse("build-fix", buildFixRequest)

var expandTmpl = tmpl.MustParse("expand", `Turn the idea below into a short requirements brief for a web project.
Start with a one paragraph project description, then list the requirements as a numbered list where each item has a short title and a one or two sentence description.
Reply with the brief only, in plain text.

Idea:
{{ .Request }}`)

var missingTmpl = tmpl.MustParse("missing", `The following file(s) you requested to read do not exist: {{ join .Paths ", " }}. Please provide the next step or clarify your request.

User request: {{ .Request }}`)

var readResultTmpl = tmpl.MustParse("read-result", `{{ range $i, $r := .Results }}{{ if $i }}
{{ end }}Here is the content of {{ $r.Path }}:

{{ $r.Content }}
{{ end }}
User request: {{ .Request }}

Now, based on the above file(s) and the user request, please proceed with the next code generation step.`)

type taskData struct {
	Brief     string
	Tip       bool
	Structure string
	Format    string
	Request   string
}

func render(t *tmpl.Template, data any) string {
	out, err := t.Execute(data)
	if err != nil {
		// templates are package constants fed with typed data
		panic(err)
	}
	return out
}

// TaskPrompt renders the main task description. When buildLogs is non-empty
// the request becomes a build fix carrying the logs.
func TaskPrompt(brief, structure, request, buildLogs string) string {
	data := taskData{
		Brief:     brief,
		Structure: structure,
		Format:    FormatInstructions,
		Request:   request,
	}
	if buildLogs != "" {
		data.Tip = true
		data.Request = render(buildFixTmpl, struct{ Logs, Request string }{buildLogs, request})
	}
	if strings.TrimSpace(data.Structure) == "" {
		data.Structure = "(empty repository)"
	}
	return render(taskTmpl, data)
}

// PlanPrompt asks the model which files it needs, restricted to reads.
func PlanPrompt(task string) string {
	return "GET ALL THE FILES THAT WE WILL NEED FOR THIS PROMPT. Please check the structure below to see which files exist: " +
		task + "\nIMPORTANT: - ONLY USE THE READ TOOL"
}

// ContextPrompt prefixes the task with the files read during planning.
func ContextPrompt(contextFiles, task string) string {
	return "CONTEXT FILES:\n" + contextFiles + "\n\n" + task
}

// ExpandPrompt asks the model to turn a first idea into a requirements brief.
func ExpandPrompt(request string) string {
	return render(expandTmpl, struct{ Request string }{request})
}

// CorrectivePrompt asks the model to resend its reply in the right format.
func CorrectivePrompt(err error) string {
	if parser.KindOf(err) == parser.KindNoJSONBlock {
		return "Your previous response did not contain a JSON block. Your JSON response should be in triple backticks and marked as json (```json). " +
			"Please respond with a single JSON object wrapped in triple backticks and marked as json as described below. " +
			"Regenerate your response again in the following format\n\n" + FormatInstructions
	}
	return "Your previous response could not be parsed due to the following error: " + err.Error() +
		". Please return your response in the correct JSON format as described below. " +
		"Regenerate your response again in the following format\n\n" + FormatInstructions
}

// ReadFollowUpPrompt hands read results back to the model. If every read
// failed it asks the model to adapt instead.
func ReadFollowUpPrompt(results []ReadResult, request string) string {
	if AllMissing(results) {
		return render(missingTmpl, struct {
			Paths   []string
			Request string
		}{MissingPaths(results), request})
	}
	return render(readResultTmpl, struct {
		Results []ReadResult
		Request string
	}{results, request})
}
