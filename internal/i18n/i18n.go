package i18n

type Language string

const (
	Italian Language = "it"
	English Language = "en"
)

var currentLang = English

type Messages struct {
	// General
	Loading string
	Error   string
	Notes   string
	Page    string
	Visits  string

	// Modes
	ModeList   string
	ModeSearch string
	ModeDetail string
	ModeHelp   string

	// List
	NoNotes        string
	NoteType       string
	SearchLabel    string
	TagLabel       string
	AttachmentsFmt string
	CreatedAt      string
	ModifiedAt     string

	// Prompts
	SearchPlaceholder string
	EnterConfirm      string
	EscCancel         string

	// Status
	SearchCooldown string
	TagsGenerated  string

	// Keys descriptions (short)
	KeyUp        string
	KeyDown      string
	KeyNext      string
	KeyPrev      string
	KeySearch    string
	KeyCycleType string
	KeyGenerate  string
	KeyOpen      string
	KeyBack      string
	KeyHelp      string
	KeyQuit      string
}

var translations = map[Language]Messages{
	Italian: {
		Loading: "Caricamento...",
		Error:   "Errore",
		Notes:   "note",
		Page:    "Pagina",
		Visits:  "Visite:",

		ModeList:   "ELENCO",
		ModeSearch: "CERCA",
		ModeDetail: "NOTA",
		ModeHelp:   "AIUTO",

		NoNotes:        "Nessuna nota",
		NoteType:       "Tipo:",
		SearchLabel:    "Ricerca:",
		TagLabel:       "Tag:",
		AttachmentsFmt: "%d allegati",
		CreatedAt:      "Creata:",
		ModifiedAt:     "Modificata:",

		SearchPlaceholder: "Cerca nel titolo e nel contenuto...",
		EnterConfirm:      "Invio per confermare",
		EscCancel:         "Esc per annullare",

		SearchCooldown: "Attendi %.1fs prima di cercare di nuovo",
		TagsGenerated:  "Tag creati: %d, esistenti: %d, non validi: %d",

		KeyUp:        "su",
		KeyDown:      "giù",
		KeyNext:      "pagina succ.",
		KeyPrev:      "pagina prec.",
		KeySearch:    "cerca",
		KeyCycleType: "tipo nota",
		KeyGenerate:  "genera tag",
		KeyOpen:      "apri",
		KeyBack:      "indietro",
		KeyHelp:      "aiuto",
		KeyQuit:      "esci",
	},
	English: {
		Loading: "Loading...",
		Error:   "Error",
		Notes:   "notes",
		Page:    "Page",
		Visits:  "Visits:",

		ModeList:   "LIST",
		ModeSearch: "SEARCH",
		ModeDetail: "NOTE",
		ModeHelp:   "HELP",

		NoNotes:        "No notes",
		NoteType:       "Type:",
		SearchLabel:    "Search:",
		TagLabel:       "Tag:",
		AttachmentsFmt: "%d attachments",
		CreatedAt:      "Created:",
		ModifiedAt:     "Modified:",

		SearchPlaceholder: "Search titles and content...",
		EnterConfirm:      "Enter to confirm",
		EscCancel:         "Esc to cancel",

		SearchCooldown: "Wait %.1fs before searching again",
		TagsGenerated:  "Tags created: %d, existing: %d, invalid: %d",

		KeyUp:        "up",
		KeyDown:      "down",
		KeyNext:      "next page",
		KeyPrev:      "prev page",
		KeySearch:    "search",
		KeyCycleType: "note type",
		KeyGenerate:  "generate tags",
		KeyOpen:      "open",
		KeyBack:      "back",
		KeyHelp:      "help",
		KeyQuit:      "quit",
	},
}

// SetLanguage switches the catalogue. Unknown languages are ignored.
func SetLanguage(lang Language) {
	if _, ok := translations[lang]; ok {
		currentLang = lang
	}
}

func GetLanguage() Language {
	return currentLang
}

func T() Messages {
	return translations[currentLang]
}
