package schema

// Collection names. The store, migrations, seeding, and the records service
// all key off these.
const (
	Patients        = "patients"
	Settings        = "settings"
	Exams           = "exams"
	Ophthalmo       = "ophthalmo"
	Drugs           = "drugs"
	Prescriptions   = "prescriptions"
	Templates       = "templates"
	ReferenceValues = "reference_values"
	Profiles        = "profiles"
	Financial       = "financial"
	LabExams        = "lab_exams"
)

// SettingsID is the primary key of the settings singleton.
const SettingsID = "global_settings"

// Practice values.
const (
	PracticeVet   = "vet"
	PracticeHuman = "human"
)

// Exam lifecycle states.
const (
	ExamStatusDraft     = "draft"
	ExamStatusFinalized = "finalized"
)

var collections = []Definition{
	{
		Name:       Settings,
		Version:    2,
		PrimaryKey: "id",
		Fields: map[string]Field{
			"id":                    {Kind: KindString},
			"clinic_name":           {Kind: KindString},
			"veterinarian_name":     {Kind: KindString},
			"crmv":                  {Kind: KindString},
			"active_profile_id":     {Kind: KindString},
			"active_profile_name":   {Kind: KindString},
			"clinic_address":        {Kind: KindString},
			"professional_email":    {Kind: KindString},
			"professional_phone":    {Kind: KindString},
			"letterhead_path":       {Kind: KindString},
			"signature_path":        {Kind: KindString},
			"letterhead_margins_mm": {Kind: KindObject},
			"practice_type":         {Kind: KindString, Enum: []string{PracticeVet, PracticeHuman}},
			"active_modules":        {Kind: KindStringArray},
			"theme":                 {Kind: KindString},
		},
		Required: []string{"id"},
	},
	{
		Name:       Patients,
		Version:    1,
		PrimaryKey: "id",
		Fields: map[string]Field{
			"id":          {Kind: KindString},
			"name":        {Kind: KindString},
			"species":     {Kind: KindString},
			"breed":       {Kind: KindString},
			"size":        {Kind: KindString},
			"owner_name":  {Kind: KindString},
			"owner_phone": {Kind: KindString},
			"document":    {Kind: KindString},
			"birth_date":  {Kind: KindString},
			"birth_year":  {Kind: KindString},
			"weight":      {Kind: KindNumber},
			"sex":         {Kind: KindString, Enum: []string{"M", "F", "male", "female"}},
			"is_neutered": {Kind: KindBool},
			"created_at":  {Kind: KindString},
			"updated_at":  {Kind: KindString},
			"practice":    {Kind: KindString},
		},
		Required: []string{"id", "name"},
	},
	{
		Name:       Exams,
		Version:    3,
		PrimaryKey: "id",
		Fields: map[string]Field{
			"id":             {Kind: KindString},
			"patient_id":     {Kind: KindString},
			"exam_type":      {Kind: KindString},
			"date":           {Kind: KindString},
			"exam_weight":    {Kind: KindNumber},
			"referring_vet":  {Kind: KindString},
			"organs_data":    {Kind: KindObjectArray, VisualItemField: "visual_data"},
			"report_content": {Kind: KindString},
			"conclusion":     {Kind: KindString},
			"images":         {Kind: KindObjectArray},
			"status":         {Kind: KindString, Enum: []string{ExamStatusDraft, ExamStatusFinalized}},
		},
		Required: []string{"id", "patient_id"},
	},
	{
		Name:       Ophthalmo,
		Version:    1,
		PrimaryKey: "id",
		Fields: map[string]Field{
			"id":               {Kind: KindString},
			"exam_id":          {Kind: KindString},
			"diagnosis_od":     {Kind: KindString},
			"diagnosis_os":     {Kind: KindString},
			"diagnosis_legacy": {Kind: KindString},
			"visual_data":      {Kind: KindVisual},
		},
		Required: []string{"id", "exam_id"},
	},
	{
		Name:       Templates,
		Version:    0,
		PrimaryKey: "id",
		Fields: map[string]Field{
			"id":        {Kind: KindString},
			"title":     {Kind: KindString},
			"text":      {Kind: KindString},
			"organ":     {Kind: KindString},
			"lang":      {Kind: KindString},
			"practice":  {Kind: KindString, Enum: []string{PracticeVet, PracticeHuman}},
			"exam_type": {Kind: KindString},
		},
		Required: []string{"id", "title", "text"},
	},
	{
		Name:       ReferenceValues,
		Version:    0,
		PrimaryKey: "id",
		Fields: map[string]Field{
			"id":        {Kind: KindString},
			"species":   {Kind: KindString},
			"organ":     {Kind: KindString},
			"parameter": {Kind: KindString},
			"min_value": {Kind: KindNumber},
			"max_value": {Kind: KindNumber},
			"unit":      {Kind: KindString},
			"size":      {Kind: KindString},
		},
		Required: []string{"id", "organ"},
	},
	{
		Name:       Profiles,
		Version:    0,
		PrimaryKey: "id",
		Fields: map[string]Field{
			"id":                    {Kind: KindString},
			"name":                  {Kind: KindString},
			"clinic_name":           {Kind: KindString},
			"clinic_address":        {Kind: KindString},
			"veterinarian_name":     {Kind: KindString},
			"crmv":                  {Kind: KindString},
			"professional_email":    {Kind: KindString},
			"professional_phone":    {Kind: KindString},
			"letterhead_path":       {Kind: KindString},
			"signature_path":        {Kind: KindString},
			"letterhead_margins_mm": {Kind: KindObject},
		},
		Required: []string{"id", "name"},
	},
	{
		Name:       Drugs,
		Version:    0,
		PrimaryKey: "id",
		Fields: map[string]Field{
			"id":             {Kind: KindString},
			"name":           {Kind: KindString},
			"type":           {Kind: KindString, Enum: []string{PracticeVet, PracticeHuman}},
			"default_dosage": {Kind: KindString},
		},
		Required: []string{"id", "name"},
	},
	{
		Name:       Prescriptions,
		Version:    0,
		PrimaryKey: "id",
		Fields: map[string]Field{
			"id":          {Kind: KindString},
			"patient_id":  {Kind: KindString},
			"doctor_name": {Kind: KindString},
			"date":        {Kind: KindString},
			"items":       {Kind: KindObjectArray},
			"notes":       {Kind: KindString},
		},
		Required: []string{"id", "patient_id"},
	},
	{
		Name:       Financial,
		Version:    0,
		PrimaryKey: "id",
		Fields: map[string]Field{
			"id":          {Kind: KindString},
			"type":        {Kind: KindString, Enum: []string{"income", "expense"}},
			"category":    {Kind: KindString},
			"amount":      {Kind: KindNumber},
			"date":        {Kind: KindString},
			"description": {Kind: KindString},
			"patient_id":  {Kind: KindString},
		},
		Required: []string{"id", "type"},
	},
	{
		Name:       LabExams,
		Version:    0,
		PrimaryKey: "id",
		Fields: map[string]Field{
			"id":         {Kind: KindString},
			"patient_id": {Kind: KindString},
			"date":       {Kind: KindString},
			"species":    {Kind: KindString},
			"panel":      {Kind: KindString},
			"results":    {Kind: KindObjectArray},
			"notes":      {Kind: KindString},
		},
		Required: []string{"id", "patient_id"},
	},
}
