package survey

import (
	"fmt"
	"os"
	"regexp"

	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v2"
)

// ValueType is the value class a question's columns are expected to hold.
type ValueType string

const (
	TypeNumeric ValueType = "numeric"
	TypeInteger ValueType = "integer"
	TypeBoolean ValueType = "boolean"
	TypeText    ValueType = "text"
	TypeMixed   ValueType = "mixed"
)

// QuestionSpec describes how one question of the instrument maps onto columns.
type QuestionSpec struct {
	ID      string    `yaml:"id"`
	Title   string    `yaml:"title"`
	Exclude []string  `yaml:"exclude,omitempty"`
	Type    ValueType `yaml:"type"`
	// Labels, when set, must match the question's columns one to one.
	Labels []string `yaml:"labels,omitempty"`
}

// CodeLabel maps a numeric answer code to its display label.
type CodeLabel struct {
	Code  int    `yaml:"code"`
	Label string `yaml:"label"`
}

// Block is one component of the composite satisfaction index.
type Block struct {
	Question string `yaml:"question"`
	Label    string `yaml:"label"`
}

// Benchmark is one bar of an NPS comparison. A nil Score marks the slot that
// receives the locally computed value.
type Benchmark struct {
	Label string `yaml:"label"`
	Score *int   `yaml:"score,omitempty"`
}

// Comparison is a named NPS comparison chart.
type Comparison struct {
	Key        string      `yaml:"key"`
	Title      string      `yaml:"title"`
	Benchmarks []Benchmark `yaml:"benchmarks"`
}

// NPSConfig holds the recommendation question and the comparison charts.
type NPSConfig struct {
	Question       string       `yaml:"question"`
	PromoterMin    float64      `yaml:"promoter_min"`
	DetractorMax   float64      `yaml:"detractor_max"`
	BaseColor      string       `yaml:"base_color"`
	HighlightColor string       `yaml:"highlight_color"`
	Comparisons    []Comparison `yaml:"comparisons"`
}

// Instrument is the versioned description of one survey questionnaire:
// which columns exist, how they are cleaned, and every label and code table
// the extractor relies on. Treat it as read-only once built.
type Instrument struct {
	Version string `yaml:"version"`
	Cohort  string `yaml:"cohort"`

	RespondentColumn string   `yaml:"respondent_column"`
	AgeColumn        string   `yaml:"age_column"`
	ServicePrefixes  []string `yaml:"service_prefixes"`
	DroppedColumns   []string `yaml:"dropped_columns"`
	QuestionPattern  string   `yaml:"question_pattern"`

	NoneLabel      string   `yaml:"none_label"`
	NoCommentLabel string   `yaml:"no_comment_label"`
	RatingGroups   []string `yaml:"rating_groups"`
	FreeText       []string `yaml:"free_text_columns"`

	AgeCodes      []CodeLabel `yaml:"age_codes"`
	IndustryCodes []CodeLabel `yaml:"industry_codes"`

	Questions    map[string]QuestionSpec `yaml:"questions"`
	Satisfaction []Block                 `yaml:"satisfaction_blocks"`
	NPS          NPSConfig               `yaml:"nps"`

	DeclinedLabel string `yaml:"declined_label"`

	questionRe *regexp.Regexp
}

// Question keys used by the extractor.
const (
	QuestionAge           = "age"
	QuestionIndustry      = "industry"
	QuestionJobFunction   = "job_function"
	QuestionProgram       = "program"
	QuestionOutcomes      = "outcomes"
	QuestionDesign        = "design"
	QuestionLecturers     = "lecturers"
	QuestionInternational = "international"
	QuestionSupport       = "support"
	QuestionGroup         = "group"
	QuestionCollaboration = "collaboration"
)

func intp(v int) *int { return &v }

// DefaultInstrument returns the built-in exit survey instrument.
func DefaultInstrument() *Instrument {
	inst := &Instrument{
		Version:          "emba-exit-v1",
		Cohort:           "EMBA-35",
		RespondentColumn: "Q16  - 🔴 Укажите  фамилию и имя",
		AgeColumn:        "Q15 🔴  Укажите ваш  возраст",
		ServicePrefixes:  []string{"S", "Unnamed:"},
		DroppedColumns:   []string{"PS0 Start", "PD0 Duration , sec"},
		QuestionPattern:  `^Q\d+`,
		NoneLabel:        "Никто",
		NoCommentLabel:   "No comments",
		RatingGroups:     []string{"Q7", "Q8", "Q9"},
		FreeText: []string{
			"Q4.1 Каковы, на ваш взгляд,  сильные и слабые стороны программы? - Сильные стороны",
			"Q4.2 Каковы, на ваш взгляд,  сильные и слабые стороны программы? - Слабые стороны",
			"Q10 Оставьте ваши  пожелания и дополнительные комментарии  по программе",
			"Q11.1.O В качестве приглашенного спикера - брендинг, корпфин",
			"Q11.5.O Другое - протагонист кейса",
			"Q13.6.O Другое - Other",
			"Q14.20.O Другое - Other",
		},
		AgeCodes: []CodeLabel{
			{1, "18-24"}, {2, "25-34"}, {3, "35-44"}, {4, "45-54"}, {5, "55+"},
		},
		IndustryCodes: []CodeLabel{
			{1, "Средства массовой информации и развлечения"},
			{2, "Здравоохранение"},
			{3, "Образование"},
			{4, "Некоммерческие организации, неправительственные организации"},
			{5, "Государственный сектор"},
			{6, "Консалтинг"},
			{7, "Недвижимость"},
			{8, "Финансы"},
			{9, "Технологии"},
			{10, "Отели, Рестораны, Кейтеринг"},
			{11, "Логистика"},
			{12, "Товары народного потребления"},
			{13, "Торговля"},
			{14, "Строительство"},
			{15, "Энергетика"},
			{16, "Производство"},
			{17, "Добыча полезных ископаемых"},
			{18, "Сельское хозяйство"},
			{19, "Другое"},
		},
		Questions: map[string]QuestionSpec{
			QuestionAge:         {ID: "Q15", Title: "Возраст", Type: TypeNumeric},
			QuestionIndustry:    {ID: "Q14", Title: "Индустрия", Type: TypeMixed},
			QuestionJobFunction: {ID: "Q13", Title: "Должность", Type: TypeMixed},
			QuestionProgram: {ID: "Q2", Title: "Общая оценка программы", Type: TypeNumeric, Labels: []string{
				"Административная<br>поддержка",
				"Приобретенные<br>знания",
				"ППС",
			}},
			QuestionOutcomes: {ID: "Q3", Title: "PILOs", Type: TypeInteger, Labels: []string{
				"Экспертный<br>уровень знания<br>бизнес-дисциплин",
				"Анализ данных<br>для принятия<br>решений",
				"Определение<br>стратегии для<br>устойчивого<br>развития",
				"Интеграционное<br>лидерство",
				"Эффективная<br>коммуникация",
				"Структурирование<br>стратегий",
				"Оценка контекста<br>и технологий",
				"Внедрение<br>ERS",
				"Креативность<br>новаторство",
				"Предпринимательское<br>мышление",
			}},
			QuestionDesign: {ID: "Q5", Title: "Дизайн программы", Type: TypeNumeric, Labels: []string{
				"Логичность<br>содержания",
				"Баланс теории<br>и практики",
				"Применимость<br>знаний",
				"Актуальность<br>знаний",
				"Соотношение<br>глобальных<br>и региональных<br>модулей",
				"Достаточность<br>проектной<br>работы",
				"Качество<br>выступающих",
			}},
			QuestionLecturers: {ID: "Q6", Title: "Лучшие преподаватели", Type: TypeMixed},
			QuestionInternational: {ID: "Q7", Title: "Международные модули", Type: TypeNumeric, Labels: []string{
				"Качество<br>кейсов",
				"Применимость<br>знаний",
				"Групповая<br>работа",
				"Выбор<br>локаций",
			}},
			QuestionSupport: {ID: "Q8", Title: "Работа команды программы", Type: TypeNumeric, Labels: []string{
				"Отклик<br>на потребности",
				"Организация<br>образовательного<br>процесса",
			}},
			QuestionGroup: {ID: "Q9", Title: "Качество группы", Type: TypeNumeric, Labels: []string{
				"Поддержка\nи взаимопомощь",
				"Опыт и знания\nодногруппников",
				"Разнообразие\nиндустрий",
				"Приобритение\nделовых\nконтактов",
			}},
			QuestionCollaboration: {ID: "Q11", Title: "Сотрудничество выпускников", Type: TypeBoolean, Exclude: []string{"Q11.1."}, Labels: []string{
				"качестве приглашенного спикера",
				"качестве ментора",
				"мероприятиях для выпускников",
				"адмиссии",
				"другое",
				"в качестве протагониста",
			}},
		},
		Satisfaction: []Block{
			{Question: "Q2", Label: "Общая оценка<br>программы (Q2)"},
			{Question: "Q3", Label: "Насколько достигнуты<br>цели обучения (Q3)"},
			{Question: "Q5", Label: "Дизайн<br>программы (Q5)"},
			{Question: "Q7", Label: "Опыт на<br>международных<br>модулях (Q7)"},
			{Question: "Q8", Label: "Работа команды<br>программы (Q8)"},
			{Question: "Q9", Label: "Качество группы (Q9)"},
		},
		NPS: NPSConfig{
			Question:       "Q12.1",
			PromoterMin:    9,
			DetractorMax:   6,
			BaseColor:      "#A9A9A9",
			HighlightColor: "#FF007F",
			Comparisons: []Comparison{
				{
					Key:   "industry",
					Title: "NPS EMBA-35 vs NPS индустрии",
					Benchmarks: []Benchmark{
						{Label: "Уровень 'Отлично'\n by Quesionstar", Score: intp(30)},
						{Label: "EMBA-35"},
						{Label: "Сфера образования", Score: intp(42)},
						{Label: "Сфера высшего\nобразования", Score: intp(51)},
					},
				},
				{
					Key:   "programs",
					Title: "Сравнение NPS разных программ Школы",
					Benchmarks: []Benchmark{
						{Label: "EMBA-31+32", Score: intp(57)},
						{Label: "EMBA-33", Score: intp(47)},
						{Label: "EMBA-34", Score: intp(51)},
						{Label: "EMBA-35"},
						{Label: "SKOLKOVO DEGREE", Score: intp(65)},
						{Label: "SKOLKOVO EMBA average", Score: intp(77)},
					},
				},
			},
		},
		DeclinedLabel: "отказываюсь",
	}
	if err := inst.prepare(); err != nil {
		panic(fmt.Sprintf("built-in instrument is invalid: %v", err))
	}
	return inst
}

// LoadInstrument reads an instrument from a YAML file.
func LoadInstrument(path string) (*Instrument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read instrument: %w", err)
	}
	return ParseInstrument(data)
}

// ParseInstrument decodes and validates a YAML instrument.
func ParseInstrument(data []byte) (*Instrument, error) {
	var inst Instrument
	if err := yaml.Unmarshal(data, &inst); err != nil {
		return nil, fmt.Errorf("decode instrument: %w", err)
	}
	if err := inst.prepare(); err != nil {
		return nil, err
	}
	return &inst, nil
}

// YAML encodes the instrument, e.g. to seed an override file.
func (inst *Instrument) YAML() ([]byte, error) {
	return yaml.Marshal(inst)
}

// Question returns the QuestionSpec registered under key.
func (inst *Instrument) Question(key string) (QuestionSpec, bool) {
	q, ok := inst.Questions[key]
	return q, ok
}

// IsQuestionColumn reports whether name follows the question naming convention.
func (inst *Instrument) IsQuestionColumn(name string) bool {
	return inst.questionRe.MatchString(name)
}

// Comparison returns the NPS comparison registered under key.
func (inst *Instrument) Comparison(key string) (Comparison, bool) {
	for _, c := range inst.NPS.Comparisons {
		if c.Key == key {
			return c, true
		}
	}
	return Comparison{}, false
}

func (inst *Instrument) prepare() error {
	if inst.Version == "" {
		return fmt.Errorf("instrument: version is required")
	}
	if inst.RespondentColumn == "" || inst.AgeColumn == "" {
		return fmt.Errorf("instrument %s: respondent and age columns are required", inst.Version)
	}
	if inst.QuestionPattern == "" {
		inst.QuestionPattern = `^Q\d+`
	}
	re, err := regexp.Compile(inst.QuestionPattern)
	if err != nil {
		return fmt.Errorf("instrument %s: question pattern: %w", inst.Version, err)
	}
	inst.questionRe = re

	inst.RespondentColumn = norm.NFC.String(inst.RespondentColumn)
	inst.AgeColumn = norm.NFC.String(inst.AgeColumn)
	for i, c := range inst.FreeText {
		inst.FreeText[i] = norm.NFC.String(c)
	}

	for key, q := range inst.Questions {
		if q.ID == "" {
			return fmt.Errorf("instrument %s: question %q has no id", inst.Version, key)
		}
	}
	for _, c := range inst.NPS.Comparisons {
		local := 0
		for _, b := range c.Benchmarks {
			if b.Score == nil {
				local++
			}
		}
		if local != 1 {
			return fmt.Errorf("instrument %s: comparison %q must have exactly one local slot, has %d", inst.Version, c.Key, local)
		}
	}
	return nil
}
