package corpus

import (
	"medrag/internal/domain"
	"medrag/internal/fsutil"
)

// SampleRecords is a small built-in corpus that makes the assistant usable without the
// MedQuAD download.
var SampleRecords = []domain.Record{
	{
		Focus:    "Influenza",
		Question: "What are the symptoms of the flu?",
		Answer:   "Symptoms of the flu can include fever, cough, sore throat, runny or stuffy nose, muscle or body aches, headaches, and fatigue (tiredness). Some people may have vomiting and diarrhea, though this is more common in children than adults.",
		Source:   "cdc_gov_flu.xml",
	},
	{
		Focus:    "Influenza",
		Question: "How does the flu spread?",
		Answer:   "Most experts believe that flu viruses spread mainly by tiny droplets made when people with flu cough, sneeze or talk. These droplets can land in the mouths or noses of people who are nearby. Less often, a person might get flu by touching a surface or object that has flu virus on it and then touching their own mouth, nose, or possibly their eyes.",
		Source:   "cdc_gov_flu.xml",
	},
	{
		Focus:    "Diabetes",
		Question: "What is type 2 diabetes?",
		Answer:   "Type 2 diabetes is a chronic condition that affects the way your body processes blood sugar (glucose). With type 2 diabetes, your body either doesn't produce enough insulin, or it resists insulin.",
		Source:   "niddk_nih_gov_diabetes.xml",
	},
	{
		Focus:    "Hypertension",
		Question: "What is high blood pressure?",
		Answer:   "High blood pressure (hypertension) is a common condition in which the long-term force of the blood against your artery walls is high enough that it may eventually cause health problems, such as heart disease.",
		Source:   "nhlbi_nih_gov_hbp.xml",
	},
}

// Seed writes SampleRecords to path unless a corpus already exists there.
// It reports whether a file was written.
func Seed(path string) (bool, error) {
	if fsutil.Exists(path) {
		return false, nil
	}
	if err := WriteCSV(path, SampleRecords); err != nil {
		return false, err
	}
	return true, nil
}
