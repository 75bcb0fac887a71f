package sqlinline

// QDebitCredits deducts $2 only when the balance covers it and writes the
// ledger entry in the same statement. No row means insufficient credits or
// an unknown user.
const QDebitCredits = `--sql 58a70b21-baee-4cbc-aaa9-9f1028d21a98
with debited as (
    update users
    set credit_balance = credit_balance - $2::int,
        updated_at = now()
    where id = $1::uuid
      and credit_balance >= $2::int
    returning id, credit_balance
),
entry as (
    insert into credit_ledger (id, user_id, delta, balance_after, reference_type, reference_id, description, created_at)
    select gen_random_uuid(), d.id, -$2::int, d.credit_balance, $3::text, $4::text, $5::text, now()
    from debited d
    returning balance_after
)
select balance_after from entry;
`

const QCreditCredits = `--sql 641e512c-4a96-406d-9ce3-2c22b3842b4e
with credited as (
    update users
    set credit_balance = credit_balance + $2::int,
        updated_at = now()
    where id = $1::uuid
    returning id, credit_balance
),
entry as (
    insert into credit_ledger (id, user_id, delta, balance_after, reference_type, reference_id, description, created_at)
    select gen_random_uuid(), c.id, $2::int, c.credit_balance, $3::text, $4::text, $5::text, now()
    from credited c
    returning balance_after
)
select balance_after from entry;
`

const QSelectCreditBalance = `--sql 50162aba-dd4c-423c-a3c7-70532b94f5b8
select credit_balance
from users
where id = $1::uuid;
`

const QListCreditLedger = `--sql e4beef3b-53bd-4d38-8896-937651346141
select id::text, user_id::text, delta, balance_after, reference_type, reference_id, coalesce(description, ''), created_at
from credit_ledger
where user_id = $1::uuid
order by created_at desc, id desc
limit $2::int;
`
