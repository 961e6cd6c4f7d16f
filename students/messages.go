package students

// Validation messages shown next to form fields.
const (
	MsgRequired   = "Este campo é obrigatório."
	MsgEmail      = "O e-mail deve ser válido."
	MsgCPFLength  = "O CPF deve conter 11 dígitos."
	MsgCPFInvalid = "CPF inválido."
)
