package services

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"sales-forecaster/pkg/models"
)

// DashboardInputs は画面から送られた入力値です。空文字は未指定を表します。
type DashboardInputs struct {
	ModelFile string
	Store     string
	Item      string
	StartDate string
	EndDate   string
	Submit    bool
}

// DashboardView は1回の実行で描画する内容です。
// FatalError が設定されている場合、それ以降の項目は描画しません。
type DashboardView struct {
	Models        []string
	Selection     *models.ModelSelection
	Stores        []int64
	Items         []int64
	SelectedModel string
	SelectedStore int64
	SelectedItem  int64
	StartDate     string
	EndDate       string
	Submitted     bool

	FatalError    string
	FatalKind     string
	InlineError   string
	ForecastError string

	Result  *models.ForecastResult
	Summary string
}

// DashboardService は入力が変わるたびに探索から予測までのパイプライン全体を同期的に再実行します。
type DashboardService struct {
	artifacts          *ArtifactService
	models             *ModelService
	datasets           *DatasetService
	forecasts          *ForecastService
	monitoring         *MonitoringService
	defaultHorizonDays int
	now                func() time.Time
}

// NewDashboardService 新しいDashboardServiceを作成
func NewDashboardService(
	artifacts *ArtifactService,
	modelService *ModelService,
	datasets *DatasetService,
	forecasts *ForecastService,
	monitoring *MonitoringService,
	defaultHorizonDays int,
) *DashboardService {
	if defaultHorizonDays <= 0 {
		defaultHorizonDays = 14
	}
	return &DashboardService{
		artifacts:          artifacts,
		models:             modelService,
		datasets:           datasets,
		forecasts:          forecasts,
		monitoring:         monitoring,
		defaultHorizonDays: defaultHorizonDays,
		now:                time.Now,
	}
}

// Artifacts returns the discovery service.
func (s *DashboardService) Artifacts() *ArtifactService { return s.artifacts }

// Models returns the model cache.
func (s *DashboardService) Models() *ModelService { return s.models }

// Datasets returns the dataset cache.
func (s *DashboardService) Datasets() *DatasetService { return s.datasets }

// Monitoring returns the run log.
func (s *DashboardService) Monitoring() *MonitoringService { return s.monitoring }

// Prepare resolves a model selection, then loads the model and its dataset summary.
func (s *DashboardService) Prepare(modelFile string) (*models.ModelSelection, *LoadedModel, *models.DatasetSummary, error) {
	sel, err := s.artifacts.Resolve(modelFile)
	if err != nil {
		return nil, nil, nil, err
	}
	model, err := s.models.Load(sel.ModelPath)
	if err != nil {
		return nil, nil, nil, err
	}
	summary, err := s.datasets.LoadSummary(sel.DatasetPath)
	if err != nil {
		return nil, nil, nil, err
	}
	return sel, model, summary, nil
}

// RunForecast executes one forecast and records it in the run log.
func (s *DashboardService) RunForecast(ctx context.Context, source string, model *LoadedModel, req models.ForecastRequest) (*models.ForecastResult, error) {
	started := s.now()
	result, err := s.forecasts.Forecast(ctx, model, req)

	entry := RunEntry{
		Source:    source,
		ModelFile: req.ModelFile,
		StoreNbr:  req.StoreNbr,
		ItemNbr:   req.ItemNbr,
		Duration:  s.now().Sub(started),
	}
	if err != nil {
		entry.Outcome = ErrorKind(err)
		entry.Message = err.Error()
		log.Printf("❌ [予測] %s store=%d item=%d: %v", req.ModelFile, req.StoreNbr, req.ItemNbr, err)
	} else {
		entry.Days = result.Days
		log.Printf("📈 [予測] %s store=%d item=%d days=%d total=%.0f", req.ModelFile, req.StoreNbr, req.ItemNbr, result.Days, result.Total)
	}
	s.monitoring.RecordRun(entry)
	return result, err
}

// Run is the handler for one input-change event. It always returns a view;
// errors are reported on the view rather than returned.
func (s *DashboardService) Run(ctx context.Context, in DashboardInputs) *DashboardView {
	view := &DashboardView{Submitted: in.Submit}

	fail := func(err error) *DashboardView {
		view.FatalError = err.Error()
		view.FatalKind = ErrorKind(err)
		log.Printf("❌ [ダッシュボード] %s: %v", view.FatalKind, err)
		if in.Submit {
			s.monitoring.RecordRun(RunEntry{
				Source:    "dashboard",
				ModelFile: view.SelectedModel,
				Outcome:   view.FatalKind,
				Message:   view.FatalError,
			})
		}
		return view
	}

	files, err := s.artifacts.Discover()
	if err != nil {
		return fail(err)
	}
	view.Models = files
	view.SelectedModel = strings.TrimSpace(in.ModelFile)
	if view.SelectedModel == "" {
		view.SelectedModel = files[0]
	}

	// 失敗してもモデル一覧は残し、別のモデルを選び直せるようにする
	sel, model, summary, err := s.Prepare(view.SelectedModel)
	if err != nil {
		if IsValidation(err) {
			view.InlineError = err.Error()
			return view
		}
		return fail(err)
	}
	view.Selection = sel
	view.Stores = summary.Stores
	view.Items = summary.Items

	// 未送信（モデル切り替えなど）の場合、データセットに無い店舗・商品は先頭の選択肢に戻すだけにする
	var inputErr error
	view.SelectedStore, err = pickIdentifier("store", in.Store, summary.Stores)
	if err != nil && in.Submit {
		inputErr = err
	}
	view.SelectedItem, err = pickIdentifier("item", in.Item, summary.Items)
	if err != nil && in.Submit && inputErr == nil {
		inputErr = err
	}

	today := day(s.now())
	start, err := parseDateInput("start_date", in.StartDate, today)
	if err != nil && inputErr == nil {
		inputErr = err
	}
	end, err := parseDateInput("end_date", in.EndDate, today.AddDate(0, 0, s.defaultHorizonDays))
	if err != nil && inputErr == nil {
		inputErr = err
	}
	view.StartDate = start.Format(models.DateLayout)
	view.EndDate = end.Format(models.DateLayout)

	if !in.Submit {
		if inputErr != nil {
			view.InlineError = inputErr.Error()
		}
		return view
	}
	if inputErr != nil {
		view.InlineError = inputErr.Error()
		s.monitoring.RecordRun(RunEntry{
			Source:    "dashboard",
			ModelFile: view.SelectedModel,
			Outcome:   ErrorKind(inputErr),
			Message:   view.InlineError,
		})
		return view
	}

	result, err := s.RunForecast(ctx, "dashboard", model, models.ForecastRequest{
		ModelFile: view.SelectedModel,
		StoreNbr:  view.SelectedStore,
		ItemNbr:   view.SelectedItem,
		StartDate: start,
		EndDate:   end,
	})
	if err != nil {
		if IsValidation(err) {
			view.InlineError = err.Error()
		} else {
			view.ForecastError = err.Error()
		}
		return view
	}

	view.Result = result
	view.Summary = SummaryMarkdown(result)
	return view
}

// SummaryMarkdown は予測結果の要約文をMarkdownで返します。
func SummaryMarkdown(result *models.ForecastResult) string {
	return fmt.Sprintf(
		"Using model **%s**, the forecast is a total of **%.0f** units.\nThe average daily forecast is **%.1f** units.",
		result.ModelFile, result.Total, result.Average,
	)
}

// pickIdentifier returns the first option when raw is empty, otherwise the parsed value
// if it is one of options.
func pickIdentifier(field, raw string, options []int64) (int64, error) {
	var first int64
	if len(options) > 0 {
		first = options[0]
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return first, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return first, &ValidationError{Field: field, Message: fmt.Sprintf("Error: Invalid %s number '%s'.", field, raw)}
	}
	for _, o := range options {
		if o == v {
			return v, nil
		}
	}
	return first, &ValidationError{Field: field, Message: fmt.Sprintf("Error: %s %d is not present in the selected dataset.", strings.ToUpper(field[:1])+field[1:], v)}
}

// parseDateInput parses YYYY-MM-DD, falling back to def when raw is empty.
func parseDateInput(field, raw string, def time.Time) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return def, nil
	}
	t, err := time.Parse(models.DateLayout, raw)
	if err != nil {
		return def, &ValidationError{Field: field, Message: fmt.Sprintf("Error: Invalid date '%s' (expected YYYY-MM-DD).", raw)}
	}
	return t, nil
}

// CheckIdentifiers reports a ValidationError when store or item is not in the dataset.
func CheckIdentifiers(summary *models.DatasetSummary, store, item int64) error {
	if _, err := pickIdentifier("store", strconv.FormatInt(store, 10), summary.Stores); err != nil {
		return err
	}
	if _, err := pickIdentifier("item", strconv.FormatInt(item, 10), summary.Items); err != nil {
		return err
	}
	return nil
}

// ParseDate parses a YYYY-MM-DD request field.
func ParseDate(field, raw string) (time.Time, error) {
	if strings.TrimSpace(raw) == "" {
		return time.Time{}, &ValidationError{Field: field, Message: fmt.Sprintf("Error: %s is required.", field)}
	}
	return parseDateInput(field, raw, time.Time{})
}
