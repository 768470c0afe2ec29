package tablegen

// stdMacros is read before every source file.
var stdMacros string

func registerMacro(m string) string {
	stdMacros += "\n" + m
	return m
}

var incMacro = registerMacro(`(defmacro inc (a) (+ a 1))`)

var decMacro = registerMacro(`(defmacro dec (a) (- a 1))`)

var sqMacro = registerMacro(`(defmacro sq (a) (* a a))`)

// Two-argument macros double as fold combiners: (fold add! 0 (1 2 3)).
var addMacro = registerMacro(`(defmacro add (a b) (+ a b))`)

var subMacro = registerMacro(`(defmacro sub (a b) (- a b))`)

var mulMacro = registerMacro(`(defmacro mul (a b) (* a b))`)

var maxMacro = registerMacro(`(defmacro max (a b) {max(a, b)})`)

var minMacro = registerMacro(`(defmacro min (a b) {min(a, b)})`)
