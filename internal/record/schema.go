package record

import (
	"slices"
	"strings"
)

// Schema describes how raw records of one collection are flattened.
type Schema struct {
	Kind Kind `mapstructure:"-"`
	// Sections are nested objects merged into the flat field list, in order.
	Sections []string `mapstructure:"sections"`
	// Scalars are top-level string fields appended after the sections.
	Scalars []string `mapstructure:"scalars"`
	// Exclude lists field names dropped from the flattened record.
	Exclude []string `mapstructure:"exclude"`

	// ListField holds the per-job list of entries (prospects only).
	ListField string `mapstructure:"list-field"`
	// Inherit lists parent fields copied into every entry (prospects only).
	Inherit []string `mapstructure:"inherit"`
	// IDField is the entry field used to derive the record id (prospects only).
	IDField string `mapstructure:"id-field"`
}

// Excludes reports whether the field is on the schema denylist.
func (s Schema) Excludes(name string) bool {
	return slices.Contains(s.Exclude, name)
}

// WithExclude returns a copy of the schema with a replaced denylist.
// A nil list keeps the current one.
func (s Schema) WithExclude(exclude []string) Schema {
	if exclude == nil {
		return s
	}
	out := s
	out.Exclude = make([]string, 0, len(exclude))
	for _, name := range exclude {
		if name = strings.TrimSpace(name); name != "" {
			out.Exclude = append(out.Exclude, name)
		}
	}
	return out
}

// JobsSchema is the layout of vagas.json.
func JobsSchema() Schema {
	return Schema{
		Kind:     KindJobs,
		Sections: []string{"informacoes_basicas", "perfil_vaga", "beneficios"},
		Exclude: []string{
			"solicitante_cliente", "cliente", "requisitante", "analista_responsavel",
			"superior_imediato", "origem_vaga", "telefone", "pais", "local_trabalho",
			"nome_substituto",
		},
	}
}

// ApplicantsSchema is the layout of applicants.json. The denylist removes
// contact data, documents and bookkeeping fields.
func ApplicantsSchema() Schema {
	return Schema{
		Kind: KindApplicants,
		Sections: []string{
			"infos_basicas", "informacoes_pessoais", "informacoes_profissionais",
			"formacao_e_idiomas", "cargo_atual",
		},
		Scalars: []string{"cv_pt"},
		Exclude: []string{
			"telefone_recado", "telefone", "telefone_celular", "data_criacao",
			"inserido_por", "data_atualizacao", "codigo_profissional", "data_aceite",
			"cpf", "fonte_indicacao", "email_secundario", "data_nascimento", "sexo",
			"estado_civil", "pcd", "endereco", "skype", "facebook", "remuneracao",
			"download_cv", "outro_curso", "id_ibrati", "email_corporativo",
			"data_admissao", "email", "local", "data_ultima_promocao",
			"nome_superior_imediato", "email_superior_imediato",
		},
	}
}

// ProspectsSchema is the layout of prospects.json.
func ProspectsSchema() Schema {
	return Schema{
		Kind:      KindProspects,
		ListField: "prospects",
		Inherit:   []string{"titulo", "modalidade"},
		IDField:   "codigo",
	}
}

// DefaultSchemas returns the schemas of every collection.
func DefaultSchemas() map[Kind]Schema {
	return map[Kind]Schema{
		KindJobs:       JobsSchema(),
		KindApplicants: ApplicantsSchema(),
		KindProspects:  ProspectsSchema(),
	}
}
