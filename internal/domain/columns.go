package domain

// Destination column names. These are the literal header strings of the
// production log sheet; rows are addressed by name, never by position.
const (
	ColTimestamp  = "Data"
	ColSection    = "sekcja produkcyjna / produkcja / участок"
	ColLot        = "numer partii"
	ColCategory   = "Kategoria produktu"
	ColDescriptor = "nomenklatura / asortyment"
	ColLotDate    = "data produkcji nikotyny / partia"
	ColMachine    = "maszyna"
	ColGross      = "wartość faktyczna, faktyczne znaczenie BRUTTO"
	ColDefect     = "brak produkcyjny / niezgodny"
	ColNet        = "liczba netto"
	ColComments   = "komentarze / uwagi komentarzy / saemachanija"
)

// RequiredColumns must all be present in the sheet's header row. Only a
// subset is populated by this worker; the rest belong to other workflows
// and are left blank.
var RequiredColumns = []string{
	ColTimestamp,
	ColSection,
	ColLot,
	ColCategory,
	ColDescriptor,
	ColLotDate,
	ColMachine,
	ColGross,
	ColDefect,
	ColNet,
	ColComments,
}
