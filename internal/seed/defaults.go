package seed

import (
	"sonoreport/internal/docstore"
	"sonoreport/internal/schema"
)

// DefaultSettings is the settings singleton created on first run (and
// recreated whenever the singleton goes missing).
func DefaultSettings() docstore.Document {
	return docstore.Document{
		"id":             schema.SettingsID,
		"practice_type":  schema.PracticeVet,
		"active_modules": []string{"core", "ultrasound", "financial"},
		"clinic_name":    "Clínica Exemplo",
		"theme":          "light",
	}
}

func defaultDrugs() []docstore.Document {
	return []docstore.Document{
		{"id": "d_v1", "name": "Doxiciclina 100mg", "type": "vet", "default_dosage": "10mg/kg a cada 12h por 21 dias"},
		{"id": "d_v2", "name": "Meloxicam 2mg", "type": "vet", "default_dosage": "0.1mg/kg SID por 3 dias"},
		{"id": "d_v3", "name": "Dipirona 500mg", "type": "vet", "default_dosage": "25mg/kg a cada 8h"},
		{"id": "d_v4", "name": "Prednisolona 20mg", "type": "vet", "default_dosage": "0.5mg/kg SID"},
		{"id": "d_h1", "name": "Dipirona Monoidratada 1g", "type": "human", "default_dosage": "1 comprimido a cada 6h se necessário"},
		{"id": "d_h2", "name": "Amoxicilina + Clavulanato 875mg", "type": "human", "default_dosage": "1 comprimido a cada 12h por 10 dias"},
		{"id": "d_h3", "name": "Losartana Potássica 50mg", "type": "human", "default_dosage": "1 comprimido pela manhã (uso contínuo)"},
		{"id": "d_h4", "name": "Sinvastatina 20mg", "type": "human", "default_dosage": "1 comprimido à noite"},
	}
}

func defaultTemplates() []docstore.Document {
	return []docstore.Document{
		{
			"id":        "t_usg_liver_normal",
			"exam_type": "ultrasound",
			"organ":     "Fígado",
			"practice":  "vet",
			"title":     "Fígado Normal",
			"text":      "Fígado com dimensões preservadas, contornos regulares e bordas finas. Ecotextura homogênea e ecogenicidade preservada. Calibre dos vasos intra-hepáticos preservado.",
		},
		{
			"id":        "t_usg_spleen_normal",
			"exam_type": "ultrasound",
			"organ":     "Baço",
			"practice":  "vet",
			"title":     "Baço Normal",
			"text":      "Baço com dimensões preservadas, contornos regulares e ecotextura homogênea característica.",
		},
		{
			"id":        "t_usg_thyroid_nodule",
			"exam_type": "ultrasound",
			"organ":     "Tireoide",
			"practice":  "human",
			"title":     "Nódulo Sólido (TI-RADS 4)",
			"text":      "Presença de nódulo sólido, hipoecoico, com contornos irregulares, medindo 1.2 x 0.8 cm no lobo direito. Vascularização central ao Doppler.",
		},
	}
}

func defaultReferenceValues() []docstore.Document {
	return []docstore.Document{
		{"id": "rv_dog_kidney_len_s", "species": "canine", "organ": "Rim", "parameter": "comprimento", "min_value": 3.2, "max_value": 4.4, "unit": "cm", "size": "small"},
		{"id": "rv_dog_kidney_len_m", "species": "canine", "organ": "Rim", "parameter": "comprimento", "min_value": 4.4, "max_value": 6.0, "unit": "cm", "size": "medium"},
		{"id": "rv_dog_kidney_len_l", "species": "canine", "organ": "Rim", "parameter": "comprimento", "min_value": 6.0, "max_value": 9.0, "unit": "cm", "size": "large"},
		{"id": "rv_dog_spleen_thick", "species": "canine", "organ": "Baço", "parameter": "espessura", "min_value": 1.0, "max_value": 2.5, "unit": "cm"},
		{"id": "rv_cat_kidney_len", "species": "feline", "organ": "Rim", "parameter": "comprimento", "min_value": 3.0, "max_value": 4.3, "unit": "cm"},
		{"id": "rv_dog_adrenal_thick", "species": "canine", "organ": "Adrenal", "parameter": "espessura", "min_value": 0.3, "max_value": 0.74, "unit": "cm"},
	}
}
