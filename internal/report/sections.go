package report

import (
	"exitsurvey/internal/survey"
)

// ChartKind tells the renderer how to draw a section.
type ChartKind string

const (
	ChartPie        ChartKind = "pie"
	ChartBox        ChartKind = "box"
	ChartNPSBar     ChartKind = "nps_bar"
	ChartStackedBar ChartKind = "stacked_bar"
	ChartHBar       ChartKind = "hbar"
)

// Section IDs. They double as metric names in the HTTP API and the CLI.
const (
	SectionAge           = "age"
	SectionIndustry      = "industry"
	SectionJobFunction   = "job_function"
	SectionProgram       = "program"
	SectionOverall       = "overall_satisfaction"
	SectionDesign        = "design"
	SectionInternational = "international_modules"
	SectionSupport       = "support"
	SectionGroup         = "group"
	SectionIndustryNPS   = "nps_industry"
	SectionProgramsNPS   = "nps_programs"
	SectionOutcomes      = "learning_outcomes"
	SectionLecturers     = "top_lecturers"
	SectionCollaboration = "collaboration"
)

// Scalar metrics that are not report sections of their own.
const (
	MetricCSI = "csi"
	MetricNPS = "nps"
)

type extractFunc func(*survey.Extractor) (survey.AggregateResult, error)

type definition struct {
	id      string
	title   string
	chart   ChartKind
	xAxis   string
	yAxis   string
	extract extractFunc
}

// adapt turns a typed extractor method into an extractFunc without leaking a
// typed nil into the interface on error.
func adapt[T survey.AggregateResult](f func(*survey.Extractor) (T, error)) extractFunc {
	return func(e *survey.Extractor) (survey.AggregateResult, error) {
		r, err := f(e)
		if err != nil {
			return nil, err
		}
		return r, nil
	}
}

// definitions is the report in display order. NPS titles come from the
// instrument's comparison, so they are left empty here.
var definitions = []definition{
	{id: SectionAge, title: "Распределение возрастов", chart: ChartPie,
		extract: adapt((*survey.Extractor).AgeDistribution)},
	{id: SectionIndustry, title: "Распределение студентов по индустриям", chart: ChartPie,
		extract: adapt((*survey.Extractor).IndustryDistribution)},
	{id: SectionJobFunction, title: "Распределение студентов по занимаемым должностям", chart: ChartPie,
		extract: adapt((*survey.Extractor).JobFunctionDistribution)},
	{id: SectionProgram, title: "Оценка программы в целом", chart: ChartBox,
		extract: adapt((*survey.Extractor).ProgramRatings)},
	{id: SectionOverall, title: "Распределение оценок различных составляющих курса", chart: ChartBox,
		extract: adapt((*survey.Extractor).OverallSatisfaction)},
	{id: SectionDesign, title: "Оценка дизайна программы", chart: ChartBox,
		extract: adapt((*survey.Extractor).DesignRatings)},
	{id: SectionInternational, title: "Оценка международных модулей", chart: ChartBox,
		extract: adapt((*survey.Extractor).InternationalModuleRatings)},
	{id: SectionSupport, title: "Оценка работы команды курса", chart: ChartBox,
		extract: adapt((*survey.Extractor).SupportRatings)},
	{id: SectionGroup, title: "Оценка качества группы", chart: ChartBox,
		extract: adapt((*survey.Extractor).GroupRatings)},
	{id: SectionIndustryNPS, chart: ChartNPSBar, yAxis: "NPS",
		extract: adapt((*survey.Extractor).IndustryNPS)},
	{id: SectionProgramsNPS, chart: ChartNPSBar, yAxis: "NPS",
		extract: adapt((*survey.Extractor).ProgramsNPS)},
	{id: SectionOutcomes, title: "Распределение оценок PILOs", chart: ChartStackedBar,
		xAxis: "Предмет", yAxis: "Количество студентов",
		extract: adapt((*survey.Extractor).LearningOutcomes)},
	{id: SectionLecturers, title: "Лучшие преподаватели", chart: ChartHBar,
		xAxis: "Количество голосов", yAxis: "Преподаватель",
		extract: adapt((*survey.Extractor).TopLecturers)},
	{id: SectionCollaboration, title: "В каких активностях готовы участвовать выпускники", chart: ChartHBar,
		xAxis: "Количество согласившихся", yAxis: "Готов участвовать в...",
		extract: adapt((*survey.Extractor).CollaborationPreferences)},
}

func lookup(id string) (definition, bool) {
	for _, d := range definitions {
		if d.id == id {
			return d, true
		}
	}
	return definition{}, false
}

// SectionIDs returns the section IDs in report order.
func SectionIDs() []string {
	ids := make([]string, len(definitions))
	for i, d := range definitions {
		ids[i] = d.id
	}
	return ids
}

// MetricNames returns every name Builder.Metric accepts: the sections in
// report order followed by the scalar metrics.
func MetricNames() []string {
	return append(SectionIDs(), MetricCSI, MetricNPS)
}

// IsMetric reports whether name is a known metric.
func IsMetric(name string) bool {
	if name == MetricCSI || name == MetricNPS {
		return true
	}
	_, ok := lookup(name)
	return ok
}
