package coursepages

import (
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const (
	noContentTitle     = "Det finnes ingen informasjon for dette studieåret"
	noLongerTaughtText = "Det tilbys ikke lenger undervisning i emnet."
	digitalExamVendor  = "Inspera Assessment"
)

var useEnglishVersionMarkers = []string{
	"se engelsk versjon",
	"see english version",
	"se engelsk beskrivelse",
	"se engelsk tekst",
	"se engelsk emnebeskrivelse",
	"se engelsk utgave",
	"see engelsk version",
	"see english text",
	"se emnets engelske nettside",
}

var studyLevels = map[string]int{
	"Doktorgrads nivå":                   900,
	"Videreutdanning høyere grad":        850,
	"Videreutdanning lavere grad":        800,
	"Høyere grads nivå":                  500,
	"Fjerdeårsemner, nivå IV":            400,
	"Tredjeårsemner, nivå III":           300,
	"Videregående emner, nivå II":        200,
	"Grunnleggende emner, nivå I":        100,
	"Lavere grad, redskapskurs":          90,
	"Norsk for internasjonale studenter": 80,
	"Examen facultatum":                  71,
	"Examen philosophicum":               70,
	"Forprøve/forkurs":                   60,
}

// StudyLevel maps a level description to its numeric level, -1 when unknown.
func StudyLevel(description string) int {
	if level, ok := studyLevels[description]; ok {
		return level
	}
	return -1
}

func normalizeSpaces(s string) string {
	return strings.ReplaceAll(s, "\u00a0", " ")
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func useEnglishVersion(text string) bool {
	text = strings.ToLower(text)
	if strings.TrimSpace(text) == "" {
		return true
	}
	for _, marker := range useEnglishVersionMarkers {
		if strings.Contains(text, marker) {
			return true
		}
	}
	return false
}

// courseName pulls the name out of titles shaped "CODE - NAME - SITE - ORG",
// where NAME may itself contain hyphens.
func courseName(doc *goquery.Document) string {
	if doc == nil {
		return ""
	}
	parts := strings.Split(strings.TrimSpace(doc.Find("title").First().Text()), "-")
	switch {
	case len(parts) < 2:
		return strings.TrimSpace(parts[0])
	case len(parts) <= 4:
		return strings.TrimSpace(parts[1])
	default:
		return strings.TrimSpace(strings.Join(parts[1:len(parts)-2], "-"))
	}
}

// strippedText joins the trimmed, non-empty text nodes below s with newlines.
func strippedText(s *goquery.Selection) string {
	var lines []string
	var walk func(*goquery.Selection)
	walk = func(sel *goquery.Selection) {
		sel.Contents().Each(func(_ int, child *goquery.Selection) {
			if goquery.NodeName(child) == "#text" {
				if t := strings.TrimSpace(child.Text()); t != "" {
					lines = append(lines, t)
				}
				return
			}
			walk(child)
		})
	}
	walk(s)
	return strings.Join(lines, "\n")
}

// sectionText renders a description section: paragraphs separated by blank
// lines and list items prefixed with "- ".
func sectionText(doc *goquery.Document, id string) string {
	if doc == nil {
		return ""
	}
	div := doc.Find("div#" + id).First()
	if div.Length() == 0 {
		return ""
	}
	var b strings.Builder
	div.Contents().Each(func(_ int, child *goquery.Selection) {
		switch goquery.NodeName(child) {
		case "p":
			b.WriteString("\n\n" + strippedText(child))
		case "ul", "ol":
			child.Find("li").Each(func(_ int, li *goquery.Selection) {
				b.WriteString("\n- " + strippedText(li))
			})
		case "#text":
			b.WriteString(strings.TrimSpace(child.Text()))
		}
	})
	return strings.TrimSpace(b.String())
}

func hasDigitalExam(doc *goquery.Document) bool {
	found := false
	doc.Find("#omEksamen a").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		if strings.TrimSpace(a.Text()) == digitalExamVendor {
			found = true
			return false
		}
		return true
	})
	return found
}

func gradeType(doc *goquery.Document) string {
	heading := doc.Find("#omEksamen .grade-rule-heading").First()
	if heading.Length() == 0 {
		return ""
	}
	parts := strings.SplitN(heading.Text(), ":", 2)
	if len(parts) < 2 {
		return ""
	}
	return collapseWhitespace(parts[1])
}

type courseFacts struct {
	credit          float64
	studyLevel      int
	taughtInAutumn  bool
	taughtInSpring  bool
	taughtInEnglish bool
	place           string
	examType        string
}

func parseFacts(doc *goquery.Document) courseFacts {
	var facts courseFacts
	doc.Find(".course-fact").Each(func(_ int, fact *goquery.Selection) {
		labelSel := fact.Find(".course-fact-label").First()
		valueSel := fact.Find(".course-fact-value").First()
		if labelSel.Length() == 0 || valueSel.Length() == 0 {
			return
		}
		label := strings.TrimSpace(labelSel.Text())
		value := strings.TrimSpace(valueSel.Text())
		lower := strings.ToLower(value)

		switch label {
		case "Studiepoeng":
			if credit, err := strconv.ParseFloat(strings.Replace(value, ",", ".", 1), 64); err == nil {
				facts.credit = credit
			}
		case "Nivå":
			facts.studyLevel = StudyLevel(value)
		case "Undervisningsstart":
			facts.taughtInAutumn = facts.taughtInAutumn || strings.Contains(lower, "høst")
			facts.taughtInSpring = facts.taughtInSpring || strings.Contains(lower, "vår")
		case "Sted":
			// the page nests the label inside the value block
			lines := strings.Split(value, "\n")
			facts.place = collapseWhitespace(lines[len(lines)-1])
		case "Vurderingsordning":
			facts.examType = collapseWhitespace(value)
		case "Undervisningsspråk":
			facts.taughtInEnglish = strings.Contains(lower, "engelsk")
		}
	})
	return facts
}
