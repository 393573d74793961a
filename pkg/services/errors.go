package services

import (
	"errors"
	"fmt"
)

// NoModelsFoundError はモデルディレクトリに対象ファイルが1つも無いことを表します。
type NoModelsFoundError struct {
	Dir string
}

func (e *NoModelsFoundError) Error() string {
	return fmt.Sprintf("No model files found in the '%s' folder.", e.Dir)
}

// MissingDatasetFileError は選択したモデルに対応するCSVが存在しないことを表します。
type MissingDatasetFileError struct {
	ModelFile   string
	DatasetFile string
}

func (e *MissingDatasetFileError) Error() string {
	return fmt.Sprintf("The associated data file '%s' was not found for the selected model.", e.DatasetFile)
}

// DeserializationError はモデルファイルの読み込み失敗を表します。
type DeserializationError struct {
	Path string
	Err  error
}

func (e *DeserializationError) Error() string {
	return fmt.Sprintf("failed to load model '%s': %v", e.Path, e.Err)
}

func (e *DeserializationError) Unwrap() error { return e.Err }

// DataLoadError はデータセットCSVの読み込み失敗を表します。
type DataLoadError struct {
	Filename string
	Err      error
}

func (e *DataLoadError) Error() string {
	return fmt.Sprintf("failed to load prediction data '%s': %v", e.Filename, e.Err)
}

func (e *DataLoadError) Unwrap() error { return e.Err }

// ValidationError はユーザー入力の誤りです。入力を直せば再実行できます。
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// InferenceError は予測関数の呼び出し失敗を表します。
type InferenceError struct {
	Err error
}

func (e *InferenceError) Error() string {
	return fmt.Sprintf("inference failed: %v", e.Err)
}

func (e *InferenceError) Unwrap() error { return e.Err }

// ErrorKind はエラーの種類をAPIレスポンス用の文字列で返します。
func ErrorKind(err error) string {
	var (
		noModels *NoModelsFoundError
		missing  *MissingDatasetFileError
		deser    *DeserializationError
		dataLoad *DataLoadError
		invalid  *ValidationError
		infer    *InferenceError
	)
	switch {
	case errors.As(err, &noModels):
		return "no_models_found"
	case errors.As(err, &missing):
		return "missing_dataset_file"
	case errors.As(err, &deser):
		return "deserialization"
	case errors.As(err, &dataLoad):
		return "data_load"
	case errors.As(err, &invalid):
		return "validation"
	case errors.As(err, &infer):
		return "inference"
	default:
		return "internal"
	}
}

// IsValidation reports whether err is a recoverable input error.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
