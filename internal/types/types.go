package types

import (
	"github.com/PrasanthKumarS777/loan-default-prediction-xai/internal/attribution"
	"github.com/PrasanthKumarS777/loan-default-prediction-xai/internal/preprocess"
)

// LoanApplication is the raw request payload for one application.
// Field names match the training dataset columns; the preprocessing
// pipeline owns their encoding.
type LoanApplication struct {
	Gender            string  `json:"Gender" binding:"required"`
	Married           string  `json:"Married" binding:"required"`
	Dependents        string  `json:"Dependents" binding:"required"`
	Education         string  `json:"Education" binding:"required"`
	SelfEmployed      string  `json:"Self_Employed" binding:"required"`
	ApplicantIncome   float64 `json:"ApplicantIncome" binding:"required,gt=0"`
	CoapplicantIncome float64 `json:"CoapplicantIncome" binding:"gte=0"`
	LoanAmount        float64 `json:"LoanAmount" binding:"required,gt=0"`
	LoanAmountTerm    float64 `json:"Loan_Amount_Term" binding:"required,gt=0"`
	CreditHistory     float64 `json:"Credit_History" binding:"gte=0,lte=1"`
	PropertyArea      string  `json:"Property_Area" binding:"required"`
}

// Row splits the application into the column maps the preprocessing
// pipeline consumes.
func (a LoanApplication) Row() preprocess.Row {
	return preprocess.Row{
		Numeric: map[string]float64{
			"ApplicantIncome":   a.ApplicantIncome,
			"CoapplicantIncome": a.CoapplicantIncome,
			"LoanAmount":        a.LoanAmount,
			"Loan_Amount_Term":  a.LoanAmountTerm,
			"Credit_History":    a.CreditHistory,
		},
		Categorical: map[string]string{
			"Gender":        a.Gender,
			"Married":       a.Married,
			"Dependents":    a.Dependents,
			"Education":     a.Education,
			"Self_Employed": a.SelfEmployed,
			"Property_Area": a.PropertyArea,
		},
	}
}

// BatchPredictionRequest carries the applications of one batch call.
type BatchPredictionRequest struct {
	Applications []LoanApplication `json:"applications" binding:"required,min=1,dive"`
}

// PredictionResponse is the payload for a single prediction.
type PredictionResponse struct {
	Prediction          string                     `json:"prediction"`
	Probability         float64                    `json:"probability"`
	ShapContributions   attribution.Attribution    `json:"shap_contributions"`
	TopFactors          []attribution.RankedFactor `json:"top_factors"`
	ResponseTimeSeconds float64                    `json:"response_time_seconds"`
}

// BatchPredictionResponse is the payload for a batch call: per-row
// records in input order plus the accumulated summary.
type BatchPredictionResponse struct {
	Predictions         []attribution.PredictionRecord `json:"predictions"`
	TotalProcessed      int                            `json:"total_processed"`
	Approved            int                            `json:"approved"`
	Rejected            int                            `json:"rejected"`
	ApprovalRatePercent float64                        `json:"approval_rate_percent"`
	ResponseTimeSeconds float64                        `json:"response_time_seconds"`
}

// HealthResponse reports load state of the frozen artifacts.
type HealthResponse struct {
	Status             string  `json:"status"`
	ModelLoaded        bool    `json:"model_loaded"`
	PreprocessorLoaded bool    `json:"preprocessor_loaded"`
	UptimeSeconds      float64 `json:"uptime_seconds"`
}

// ModelInfoResponse describes the loaded ensemble.
type ModelInfoResponse struct {
	ModelType    string   `json:"model_type"`
	NumFeatures  int      `json:"n_features"`
	FeatureNames []string `json:"feature_names"`
}
