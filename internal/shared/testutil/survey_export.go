package testutil

import (
	"fmt"
	"strings"
	"testing"
)

// SurveyExportHeader is a complete header row of the default exit survey
// export, service columns included.
var SurveyExportHeader = func() []string {
	h := []string{"Unnamed: 0", "S1 Статус", "PS0 Start",
		"Q16  - 🔴 Укажите  фамилию и имя", "Q15 🔴  Укажите ваш  возраст"}
	h = append(h, numberedColumns("Q2", 3, "Оценка")...)
	h = append(h, numberedColumns("Q3", 10, "PILO")...)
	h = append(h, "Q4.1 Каковы, на ваш взгляд,  сильные и слабые стороны программы? - Сильные стороны")
	h = append(h, numberedColumns("Q5", 7, "Дизайн")...)
	h = append(h, numberedColumns("Q6", 2, "Преподаватель")...)
	h = append(h, numberedColumns("Q7", 4, "Модуль")...)
	h = append(h, numberedColumns("Q8", 2, "Команда")...)
	h = append(h, numberedColumns("Q9", 4, "Группа")...)
	h = append(h, "Q10 Оставьте ваши  пожелания и дополнительные комментарии  по программе")
	h = append(h,
		"Q11.1 В качестве приглашенного спикера",
		"Q11.1.O В качестве приглашенного спикера - брендинг, корпфин",
		"Q11.2 В качестве ментора",
		"Q11.3 На мероприятиях для выпускников",
		"Q11.4 В адмиссии",
		"Q11.5 Другое",
		"Q11.5.O Другое - протагонист кейса",
		"Q12.1  - 🔴  Готовы ли вы порекомендовать программу своим друзьям/коллегам?",
		"Q13.1 Топ-менеджер", "Q13.2 Специалист", "Q13.6.O Другое - Other",
		"Q14.1 Индустрия", "Q14.20.O Другое - Other",
	)
	return h
}()

// SurveyExportNPS lists the recommendation answers of SurveyExport, one per
// respondent. Three promoters and one detractor out of five give NPS 40.
var SurveyExportNPS = []int{10, 10, 9, 7, 3}

// SurveyExport builds a five-respondent export workbook with a sixth,
// unnamed row the normalizer must drop. Every rating is constant per
// question so the satisfaction index is 8.5.
func SurveyExport(t *testing.T) []byte {
	t.Helper()
	rows := make([][]interface{}, 0, len(SurveyExportNPS)+1)
	for i := range SurveyExportNPS {
		rows = append(rows, exportRow(i, fmt.Sprintf("Респондент %d", i+1)))
	}
	rows = append(rows, exportRow(len(SurveyExportNPS), ""))
	return ExportWorkbook(t, SurveyExportHeader, rows...)
}

func exportRow(i int, name string) []interface{} {
	row := make([]interface{}, len(SurveyExportHeader))
	for j, col := range SurveyExportHeader {
		var v interface{}
		switch {
		case col == "Unnamed: 0":
			v = i
		case col == "S1 Статус", col == "PS0 Start":
			v = "complete"
		case strings.HasPrefix(col, "Q16 "):
			if name != "" {
				v = name
			}
		case strings.HasPrefix(col, "Q15 "):
			v = 3
		case strings.HasPrefix(col, "Q2."):
			v = 8
		case strings.HasPrefix(col, "Q3."):
			v = 7
		case strings.HasPrefix(col, "Q5."):
			v = 9
		case col == "Q6.1 Преподаватель 1" && i == 0:
			v = "Смирнов"
		case col == "Q6.2 Преподаватель 2" && i == 1:
			v = "Петров"
		case strings.HasPrefix(col, "Q7."):
			v = 8
		case strings.HasPrefix(col, "Q8."):
			v = 9
		case strings.HasPrefix(col, "Q9."):
			v = 10
		case strings.HasPrefix(col, "Q11.2 "):
			v = 1
		case strings.HasPrefix(col, "Q11.") && !strings.Contains(col, ".O "):
			v = 0
		case strings.HasPrefix(col, "Q12.1 "):
			if i < len(SurveyExportNPS) {
				v = SurveyExportNPS[i]
			} else {
				v = 10
			}
		case strings.HasPrefix(col, "Q13.1 "):
			v = 1
		case strings.HasPrefix(col, "Q13.2 "):
			v = 0
		case strings.HasPrefix(col, "Q14.1 "):
			v = 9
		}
		row[j] = v
	}
	return row
}

func numberedColumns(id string, n int, text string) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("%s.%d %s %d", id, i+1, text, i+1)
	}
	return out
}
